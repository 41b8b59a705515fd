package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSink struct {
	mu   sync.Mutex
	recs []*Record
	err  error
}

func (s *stubSink) Write(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *stubSink) records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.recs...)
}

type panicSink struct{}

func (panicSink) Write(context.Context, *Record) error { panic("sink exploded") }

type testLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *testLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func TestRecorderDispatchesToBothChannels(t *testing.T) {
	file, store := &stubSink{}, &stubSink{}
	r := NewRecorder(file, store, &testLogger{})

	r.Record(&Record{QueryName: "active_orders", QueryVersion: 3, Status: StatusSuccess, RowCount: 2})
	require.NoError(t, r.Close())

	require.Len(t, file.records(), 1)
	require.Len(t, store.records(), 1)
	assert.Equal(t, "active_orders", file.records()[0].QueryName)
}

func TestRecorderFillsDefaults(t *testing.T) {
	file := &stubSink{}
	r := NewRecorder(file, nil, &testLogger{})

	r.Record(&Record{QueryName: "q", Status: StatusError, Error: "boom"})
	require.NoError(t, r.Close())

	rec := file.records()[0]
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.ExecutedAt.IsZero())
}

func TestRecorderStoreFailureDoesNotAffectFileChannel(t *testing.T) {
	file := &stubSink{}
	store := &stubSink{err: errors.New("connection refused")}
	logger := &testLogger{}
	r := NewRecorder(file, store, logger)

	r.Record(&Record{QueryName: "q", Status: StatusSuccess})
	require.NoError(t, r.Close())

	assert.Len(t, file.records(), 1)
	require.Len(t, logger.warnings(), 1)
	assert.Contains(t, logger.warnings()[0], "audit write failed")
}

func TestRecorderBothChannelsFailing(t *testing.T) {
	file := &stubSink{err: errors.New("disk full")}
	store := &stubSink{err: errors.New("connection refused")}
	logger := &testLogger{}
	r := NewRecorder(file, store, logger)

	// must not panic or propagate anything
	r.Record(&Record{QueryName: "q", Status: StatusError, Error: "boom"})
	require.NoError(t, r.Close())

	assert.Len(t, logger.warnings(), 2)
}

func TestRecorderRecoversSinkPanic(t *testing.T) {
	file := &stubSink{}
	logger := &testLogger{}
	r := NewRecorder(file, panicSink{}, logger)

	r.Record(&Record{QueryName: "q", Status: StatusSuccess})
	require.NoError(t, r.Close())

	assert.Len(t, file.records(), 1)
	require.Len(t, logger.warnings(), 1)
	assert.Contains(t, logger.warnings()[0], "panicked")
}

func TestRecorderNilSinksAreSkipped(t *testing.T) {
	r := NewRecorder(nil, nil, &testLogger{})
	r.Record(&Record{QueryName: "q", Status: StatusSuccess})
	assert.NoError(t, r.Close())
}
