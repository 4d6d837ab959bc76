package defs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/systems/systemstest"
)

func pump(t *testing.T, o *Outbox) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Pump().Run(ctx, func(game.Event) bool { return true })
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestOutbox_DeliversInSendOrder(t *testing.T) {
	conn := systemstest.NewSender("c1")
	o := NewOutbox(conn, 0)
	assert.Equal(t, "c1", o.ConnID())
	stop := pump(t, o)
	defer stop()

	for i := 0; i < 200; i++ {
		require.NoError(t, o.Send(i))
	}
	require.Eventually(t, func() bool { return len(conn.Sent()) == 200 }, 2*time.Second, 5*time.Millisecond)
	for i, m := range conn.Sent() {
		require.Equal(t, i, m)
	}
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	conn := systemstest.NewSender("c1")
	o := NewOutbox(conn, 2)

	require.NoError(t, o.Send("a"))
	require.NoError(t, o.Send("b"))
	assert.ErrorIs(t, o.Send("c"), ErrOutboxFull)
	assert.Equal(t, uint64(1), o.Dropped())

	stop := pump(t, o)
	defer stop()
	require.Eventually(t, func() bool { return len(conn.Sent()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []any{"a", "b"}, conn.Sent())
}

func TestOutbox_CloseDiscardsAndEndsPump(t *testing.T) {
	conn := systemstest.NewSender("c1")
	o := NewOutbox(conn, 0)
	require.NoError(t, o.Send("queued"))
	o.Close()
	o.Close()
	assert.ErrorIs(t, o.Send("late"), ErrOutboxClosed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Pump().Run(context.Background(), func(game.Event) bool { return true })
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "pump did not end after close")
	}
	assert.Empty(t, conn.Sent())
}
