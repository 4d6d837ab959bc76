package game

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Yield hands an event produced by a task to the game. A nil event is a
// keep-alive and emits nothing. Yield returns false once the game has stopped;
// the task should return then.
type Yield func(ev Event) bool

// Task is a concurrently running producer of events. It is started once and
// never restarted; returning ends it silently.
type Task interface {
	Run(ctx context.Context, yield Yield)
}

type TaskFunc func(ctx context.Context, yield Yield)

func (f TaskFunc) Run(ctx context.Context, yield Yield) { f(ctx, yield) }

// Once yields the given events in order and ends.
func Once(events ...Event) Task {
	return TaskFunc(func(_ context.Context, yield Yield) {
		for _, ev := range events {
			if !yield(ev) {
				return
			}
		}
	})
}

// schedule starts every registered task in its own goroutine until ctx ends.
func (g *Game) schedule(ctx context.Context) {
	defer close(g.schedDone)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-g.tasks:
			g.inflight.Add(1)
			go func() {
				defer g.inflight.Done()
				g.runTask(ctx, t)
			}()
		}
	}
}

func (g *Game) runTask(ctx context.Context, t Task) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WithField("panic", fmt.Sprint(r)).Warn("task panicked")
		}
	}()
	t.Run(ctx, func(ev Event) bool {
		if ev == nil {
			return !g.Stopped()
		}
		if err := g.Submit(ctx, EmitEvent{Event: ev}); err != nil {
			g.log.WithFields(logrus.Fields{
				"event": ev.EventName(),
				"error": err,
			}).Debug("dropped task event")
			return false
		}
		return true
	})
}

// handOff registers a task produced by an effect. It runs on the actor and
// blocks while the task channel is full.
func (g *Game) handOff(ctx context.Context, t Task) {
	if t == nil {
		return
	}
	select {
	case g.tasks <- t:
	case <-g.stop:
		g.log.Debug("dropped task: game stopped")
	case <-ctx.Done():
		g.log.Debug("dropped task: context done")
	}
}
