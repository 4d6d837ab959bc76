package defs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bpawel10/skyless/internal/core/game"
)

var (
	ErrOutboxClosed = errors.New("outbox: closed")
	ErrOutboxFull   = errors.New("outbox: full")
)

const defaultOutboxLimit = 1024

// Outbox is the ordered outbound queue of one connection. Effects append to
// it on the game goroutine, so a client receives messages in apply order.
// The Pump task hands them to the connection one at a time.
type Outbox struct {
	conn  Sender
	limit int

	mu     sync.Mutex
	queue  []any
	closed bool
	wake   chan struct{}

	dropped atomic.Uint64
}

// NewOutbox wraps conn. A limit <= 0 selects the default.
func NewOutbox(conn Sender, limit int) *Outbox {
	if limit <= 0 {
		limit = defaultOutboxLimit
	}
	return &Outbox{conn: conn, limit: limit, wake: make(chan struct{}, 1)}
}

func (o *Outbox) ConnID() string { return o.conn.ConnID() }

// Send appends msg. It never blocks.
func (o *Outbox) Send(msg any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	if len(o.queue) >= o.limit {
		o.dropped.Add(1)
		return ErrOutboxFull
	}
	o.queue = append(o.queue, msg)
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the outbox. Queued messages are discarded.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.queue = nil
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Outbox) Dropped() uint64 { return o.dropped.Load() }

func (o *Outbox) take() ([]any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.queue
	o.queue = nil
	return batch, o.closed
}

// Pump returns the task delivering queued messages in order until the outbox
// is closed or the game stops.
func (o *Outbox) Pump() game.Task {
	return game.TaskFunc(func(ctx context.Context, _ game.Yield) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.wake:
			}
			batch, closed := o.take()
			if closed {
				return
			}
			for _, msg := range batch {
				_ = o.conn.Send(msg)
			}
		}
	})
}
