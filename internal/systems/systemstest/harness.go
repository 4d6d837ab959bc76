// Package systemstest drives a running game through its exported API for
// system-level tests.
package systemstest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

const waitTimeout = 2 * time.Second

type Harness struct {
	T *testing.T
	G *game.Game
}

// NewHarness creates a game, lets register attach systems, and runs it until
// the test ends.
func NewHarness(t *testing.T, register ...func(g *game.Game)) *Harness {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	g := game.New(game.Config{}, logrus.NewEntry(l))
	for _, r := range register {
		r(g)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitTimeout):
		}
	})
	return &Harness{T: t, G: g}
}

// Apply applies cmd and waits for it to settle.
func (h *Harness) Apply(cmd game.Command) {
	h.T.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := h.G.Apply(ctx, cmd); err != nil {
		h.T.Fatalf("apply %s: %v", cmd.CommandName(), err)
	}
}

// Emit dispatches ev and waits until every induced command settled.
func (h *Harness) Emit(ev game.Event) {
	h.T.Helper()
	h.Apply(game.EmitEvent{Event: ev})
}

// Sync waits until every command submitted so far has been applied.
func (h *Harness) Sync() {
	h.T.Helper()
	h.Apply(game.SetGameAttribute{Attribute: syncMark(time.Now().UnixNano())})
}

type syncMark int64

func (syncMark) AttributeName() string { return "systemstest_sync" }

// World returns a deep copy of the current world.
func (h *Harness) World() *model.World {
	h.T.Helper()
	var out *model.World
	if err := h.G.World().View(func(w *model.World) { out = w.Clone() }); err != nil {
		h.T.Fatalf("view world: %v", err)
	}
	return out
}

// Eventually polls cond until it holds or the wait times out.
func (h *Harness) Eventually(what string, cond func() bool) {
	h.T.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			h.T.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Recorder collects events of one type seen by the bus.
type Recorder[E game.Event] struct {
	mu     sync.Mutex
	events []E
}

// Record registers a recorder for E on g.
func Record[E game.Event](g *game.Game) *Recorder[E] {
	r := &Recorder[E]{}
	game.On(g.Bus(), func(ev E, _ *game.Attributes, _ *game.WorldHandle) game.Reaction {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		return game.Reaction{}
	})
	return r
}

func (r *Recorder[E]) Events() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]E(nil), r.events...)
}
