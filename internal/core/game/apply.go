package game

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/model"
)

// process applies one top-level command. Panics are converted into a fatal
// error so the actor can stop cleanly.
func (g *Game) process(ctx context.Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, cmd.CommandName(), r)
		}
	}()
	return g.apply(ctx, cmd, 0)
}

func (g *Game) apply(ctx context.Context, cmd Command, depth int) error {
	if depth > g.cfg.MaxDepth {
		return fmt.Errorf("%w: %s at depth %d", ErrRecursionLimit, cmd.CommandName(), depth)
	}

	var (
		applied bool
		follow  Event
		err     error
	)
	switch c := cmd.(type) {
	case EmitEvent:
		if c.Event == nil {
			break
		}
		g.record(cmd, depth, true)
		return g.dispatch(ctx, c.Event, depth)

	case SetGameAttribute:
		if c.Attribute == nil {
			break
		}
		err = g.attrs.set(c.Attribute)
		applied = err == nil

	case SetWorld:
		err = g.world.replace(c.World)
		applied = err == nil

	case AddEntity:
		if c.Entity == nil {
			break
		}
		err = g.world.mutate(func(w *model.World) {
			t, ok := w.Tile(c.Position)
			if !ok {
				return
			}
			t.Push(c.Entity)
			applied = true
		})

	case SetEntityAttribute:
		if c.Attribute == nil {
			break
		}
		err = g.world.mutate(func(w *model.World) {
			e, ok := w.Entity(c.Position)
			if !ok {
				return
			}
			if e.Attributes == nil {
				e.Attributes = attr.Bag{}
			}
			e.Attributes.Set(c.Attribute)
			applied = true
		})
		if applied {
			follow = ChangedEntity{Position: c.Position, Attribute: c.Attribute.AttributeName()}
		}

	case RemoveEntityAttribute:
		err = g.world.mutate(func(w *model.World) {
			e, ok := w.Entity(c.Position)
			if !ok {
				return
			}
			applied = e.Attributes.Delete(c.Name)
		})
		if applied {
			follow = RemovedEntity{Position: c.Position, Attribute: c.Name}
		}

	case MoveEntity:
		err = g.world.mutate(func(w *model.World) {
			i, ok := c.From.Stack()
			if !ok {
				return
			}
			from, ok := w.Tile(c.From)
			if !ok {
				return
			}
			if _, ok := from.Entity(i); !ok {
				return
			}
			to, ok := w.Tile(c.To)
			if !ok {
				return
			}
			e, _ := from.RemoveAt(i)
			to.Push(e)
			applied = true
		})
		if applied {
			follow = MovedEntity{From: c.From, To: c.To}
		}

	default:
		g.log.WithField("command", fmt.Sprintf("%T", cmd)).Warn("unknown command")
	}

	if err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandName(), err)
	}
	g.record(cmd, depth, applied)
	if !applied {
		g.log.WithFields(logrus.Fields{
			"command": cmd.CommandName(),
			"depth":   depth,
		}).Debug("skipped: precondition not met")
		return nil
	}
	if follow != nil {
		return g.dispatch(ctx, follow, depth)
	}
	return nil
}

// dispatch runs every effect registered for ev in registration order. The
// commands of an effect are fully applied before the next effect runs.
func (g *Game) dispatch(ctx context.Context, ev Event, depth int) error {
	for _, fx := range g.bus.snapshot(ev.EventName()) {
		r := fx(ev, g.attrs, g.world)
		for _, c := range r.Commands {
			if c == nil {
				continue
			}
			if err := g.apply(ctx, c, depth+1); err != nil {
				return err
			}
		}
		for _, t := range r.Tasks {
			g.handOff(ctx, t)
		}
	}
	return nil
}

func (g *Game) record(cmd Command, depth int, applied bool) {
	if g.recorder == nil {
		return
	}
	g.seq++
	rec := describe(cmd)
	rec.Run = g.cfg.RunID
	rec.Seq = g.seq
	rec.At = time.Now().UTC()
	rec.Depth = depth
	rec.Applied = applied
	if err := g.recorder.RecordCommand(rec); err != nil {
		g.log.WithError(err).Warn("record command")
	}
}
