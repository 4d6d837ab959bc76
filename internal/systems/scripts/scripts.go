// Package scripts holds item behaviors: levers, stone switches and the
// heartbeat tick.
package scripts

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

type Config struct {
	TickEnabled  bool
	TickInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

type system struct {
	cfg Config
	log *logrus.Entry
}

// Register installs the item scripts on g. The tick task, when enabled, is
// started once the systems are loaded.
func Register(g *game.Game, cfg Config) {
	cfg.applyDefaults()
	s := &system{cfg: cfg, log: g.Logger().WithField("component", "scripts")}
	game.On(g.Bus(), s.onUse)
	game.On(g.Bus(), s.onCollision)
	game.On(g.Bus(), s.onSeparation)
	game.On(g.Bus(), s.onTick)
	if cfg.TickEnabled {
		game.On(g.Bus(), func(game.SystemsLoaded, *game.Attributes, *game.WorldHandle) game.Reaction {
			return game.Reaction{Tasks: []game.Task{TickTask(cfg.TickInterval)}}
		})
	}
}

func (s *system) onUse(ev defs.Use, _ *game.Attributes, world *game.WorldHandle) game.Reaction {
	var next defs.Item
	_ = world.View(func(w *model.World) {
		e, ok := w.Entity(ev.Target)
		if !ok {
			return
		}
		if a, ok := attr.Get[defs.Action](e.Attributes); !ok || a != defs.ActionLever {
			return
		}
		switch it, _ := attr.Get[defs.Item](e.Attributes); uint16(it) {
		case defs.ItemLeverLeft:
			next = defs.Item(defs.ItemLeverRight)
		case defs.ItemLeverRight:
			next = defs.Item(defs.ItemLeverLeft)
		}
	})
	if next == 0 {
		return game.Reaction{}
	}
	s.log.WithFields(logrus.Fields{"target": ev.Target.String(), "item": next}).Debug("lever toggled")
	return game.Reaction{Commands: []game.Command{game.SetEntityAttribute{Position: ev.Target, Attribute: next}}}
}

func (s *system) onCollision(ev defs.Collision, _ *game.Attributes, world *game.WorldHandle) game.Reaction {
	return s.pressSwitch(world, ev.First, ev.Second, defs.ItemStoneSwitchActivated)
}

func (s *system) onSeparation(ev defs.Separation, _ *game.Attributes, world *game.WorldHandle) game.Reaction {
	return s.pressSwitch(world, ev.First, ev.Second, defs.ItemStoneSwitch)
}

// pressSwitch sets the switch at first to item when a player is the other
// party.
func (s *system) pressSwitch(world *game.WorldHandle, first, second model.Position, item uint16) game.Reaction {
	ok := false
	_ = world.View(func(w *model.World) {
		e, found := w.Entity(first)
		if !found {
			return
		}
		if a, _ := attr.Get[defs.Action](e.Attributes); a != defs.ActionSwitch {
			return
		}
		ok = defs.IsPlayer(w, second)
	})
	if !ok {
		return game.Reaction{}
	}
	s.log.WithFields(logrus.Fields{"switch": first.String(), "item": item}).Debug("switch pressed")
	return game.Reaction{Commands: []game.Command{game.SetEntityAttribute{Position: first, Attribute: defs.Item(item)}}}
}

func (s *system) onTick(ev defs.Tick, _ *game.Attributes, _ *game.WorldHandle) game.Reaction {
	s.log.WithField("interval", ev.Interval.String()).Debug("tick")
	return game.Reaction{}
}

// TickTask yields Tick every interval until the game stops.
func TickTask(interval time.Duration) game.Task {
	return game.TaskFunc(func(ctx context.Context, yield game.Yield) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if !yield(defs.Tick{Interval: interval}) {
					return
				}
			}
		}
	})
}
