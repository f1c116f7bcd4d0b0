package logstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultCapacity = 500

// Store is a bounded in-memory ring buffer of the most recent records,
// with an optional JSON-Lines file sink for durability.
type Store struct {
	mu       sync.Mutex
	buf      []Record
	cursor   int
	size     int
	capacity int

	sink   *lumberjack.Logger
	logger *slog.Logger
}

// New builds a store with room for `capacity` records (defaultCapacity
// if <= 0). filePath, if non-empty, enables a rotating JSON-Lines sink
// backed by lumberjack so a long-running proxy never grows an unbounded
// log file.
func New(capacity int, filePath string, logger *slog.Logger) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	s := &Store{
		buf:      make([]Record, capacity),
		capacity: capacity,
		logger:   logger,
	}

	if filePath != "" {
		s.sink = &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	return s
}

// Append records one entry, both into the ring buffer and (if
// configured) the file sink. File-sink errors are logged, never
// propagated: request logging is a best-effort background effect.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	s.buf[s.cursor] = r
	s.cursor = (s.cursor + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	s.mu.Unlock()

	if s.sink == nil {
		return
	}

	line, err := json.Marshal(r)
	if err != nil {
		s.logger.Warn("failed to marshal log record for file sink", "error", err)
		return
	}

	line = append(line, '\n')
	if _, err := s.sink.Write(line); err != nil {
		s.logger.Warn("failed to write log record to file sink", "error", err)
	}
}

// Tail returns up to n of the most recent records, newest last.
func (s *Store) Tail(n int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || n > s.size {
		n = s.size
	}

	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.cursor - n + i + s.capacity) % s.capacity
		out = append(out, s.buf[idx])
	}

	return out
}

// Close flushes and closes the file sink, if configured.
func (s *Store) Close() error {
	if s.sink == nil {
		return nil
	}
	if err := s.sink.Close(); err != nil {
		return fmt.Errorf("close log sink: %w", err)
	}
	return nil
}
