package audit

import (
	"context"
	"io"
	"sync"
	"time"
)

// Logger is the non-propagating sink for audit channel failures.
type Logger interface {
	Warn(msg string, args ...any)
}

const dispatchTimeout = 10 * time.Second

// Recorder dispatches each record to the file channel and the store channel
// as two independent tasks. Record returns as soon as both tasks are
// launched; callers are never delayed by, nor told about, audit I/O.
type Recorder struct {
	file   Sink
	store  Sink
	logger Logger
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder over the two channels. Either sink may be
// nil, which disables that channel.
func NewRecorder(file, store Sink, logger Logger) *Recorder {
	return &Recorder{file: file, store: store, logger: logger}
}

// Record dispatches rec to both channels without blocking. It is called
// exactly once per invocation, on the success and the error path alike.
func (r *Recorder) Record(rec *Record) {
	rec.fillDefaults()
	r.dispatch("file", r.file, rec)
	r.dispatch("store", r.store, rec)
}

func (r *Recorder) dispatch(channel string, sink Sink, rec *Record) {
	if sink == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warn("audit dispatch panicked", "channel", channel, "query", rec.QueryName, "panic", p)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := sink.Write(ctx, rec); err != nil {
			r.logger.Warn("audit write failed", "channel", channel, "query", rec.QueryName, "error", err)
		}
	}()
}

// Close waits for in-flight dispatches to finish and closes any closable
// sink. Intended for shutdown and tests; Record never waits on it.
func (r *Recorder) Close() error {
	r.wg.Wait()
	var first error
	for _, sink := range []Sink{r.file, r.store} {
		if c, ok := sink.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
