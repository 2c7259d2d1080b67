package server

import (
	"bytes"
	"sync"
)

// stream carries a run's output to the HTTP handler. Once the client is
// gone, writes are dropped so the run never blocks on it.
type stream struct {
	chunks chan []byte
	gone   chan struct{}

	mu       sync.Mutex
	closed   bool
	runErr   error
	goneOnce sync.Once
}

func newStream() *stream {
	return &stream{
		chunks: make(chan []byte, 64),
		gone:   make(chan struct{}),
	}
}

func (s *stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return len(p), nil
	}
	select {
	case s.chunks <- bytes.Clone(p):
	case <-s.gone:
	}
	return len(p), nil
}

// finish records the run's result and ends the stream.
func (s *stream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runErr = err
	s.closed = true
	close(s.chunks)
}

func (s *stream) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

func (s *stream) detach() {
	s.goneOnce.Do(func() { close(s.gone) })
}
