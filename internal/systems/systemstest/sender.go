package systemstest

import (
	"context"
	"sync"

	"github.com/bpawel10/skyless/internal/core/game"
)

// Sender records every message sent to a fake client connection. It also
// satisfies defs.Conn with a reader task that yields the queued events.
type Sender struct {
	ID string

	mu     sync.Mutex
	sent   []any
	closed bool
	inbox  chan game.Event
}

func NewSender(id string) *Sender {
	return &Sender{ID: id, inbox: make(chan game.Event, 16)}
}

func (s *Sender) ConnID() string { return s.ID }

func (s *Sender) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.inbox)
	}
	return nil
}

// Push queues ev for the reader task.
func (s *Sender) Push(ev game.Event) { s.inbox <- ev }

func (s *Sender) Reader() game.Task {
	return game.TaskFunc(func(ctx context.Context, yield game.Yield) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.inbox:
				if !ok || !yield(ev) {
					return
				}
			}
		}
	})
}

// Sent returns a copy of every message sent so far.
func (s *Sender) Sent() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.sent...)
}

// SentOf returns the sent messages of type T.
func SentOf[T any](s *Sender) []T {
	var out []T
	for _, m := range s.Sent() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
