package logger

import (
	"errors"
	"io"
	"sync"
)

var errSinkClosed = errors.New("logger: sink closed")

type sinkEntry struct {
	line []byte
	// ack is set for flush markers, which carry no line.
	ack chan error
}

// sink hands log lines to a background goroutine that copies them to every output.
// Lines are written in the order Write was called.
type sink struct {
	outs    []io.Writer
	entries chan sinkEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
	err    error
}

func newSink(outs []io.Writer, queue int) *sink {
	if queue <= 0 {
		queue = 256
	}
	s := &sink{
		outs:    outs,
		entries: make(chan sinkEntry, queue),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	var firstErr error
	for e := range s.entries {
		if e.ack != nil {
			e.ack <- firstErr
			continue
		}
		for _, w := range s.outs {
			if _, err := w.Write(e.line); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	s.mu.Lock()
	s.err = firstErr
	s.mu.Unlock()
}

// Write queues a copy of p. It blocks while the queue is full.
func (s *sink) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errSinkClosed
	}
	s.entries <- sinkEntry{line: line}
	return nil
}

// Flush waits until every line queued before the call has been written.
func (s *sink) Flush() error {
	ack := make(chan error, 1)
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errSinkClosed
	}
	s.entries <- sinkEntry{ack: ack}
	s.mu.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first write error, if any.
func (s *sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()
	<-s.done

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
