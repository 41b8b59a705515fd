package audit

import (
	"context"
	"encoding/json"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink appends one JSON line per record to a size-rotated log file.
type FileSink struct {
	mu sync.Mutex
	w  *lumberjack.Logger
}

// FileSinkConfig controls the rotation of the audit log file.
type FileSinkConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewFileSink creates a sink writing to cfg.Path. The file is created lazily
// on first write.
func NewFileSink(cfg FileSinkConfig) *FileSink {
	return &FileSink{
		w: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		},
	}
}

// Write appends rec as a single JSON line.
func (s *FileSink) Write(_ context.Context, rec *Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

// Close closes the underlying log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
