// Package movement turns move requests into world moves and reports what the
// moving entity touched and left.
package movement

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

type Config struct {
	// Now is the clock used for walking cooldowns.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Now == nil {
		c.Now = time.Now
	}
}

// StepDuration is how long one step takes at speed.
func StepDuration(speed defs.Speed) time.Duration {
	if speed == 0 {
		return 0
	}
	return time.Duration(1000*150/int(speed)) * time.Millisecond
}

type system struct {
	cfg Config
	log *logrus.Entry
}

func Register(g *game.Game, cfg Config) {
	cfg.applyDefaults()
	s := &system{cfg: cfg, log: g.Logger().WithField("component", "movement")}
	game.On(g.Bus(), s.onMovePayload)
	game.On(g.Bus(), s.onMove)
	game.On(g.Bus(), s.onMovedEntity)
}

func (s *system) onMovePayload(ev defs.MovePayload, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	client, ok := defs.ClientOf(attrs, ev.ConnID)
	if !ok || !ev.Direction.Valid() {
		return game.Reaction{}
	}
	now := s.cfg.Now()

	var (
		from  model.Position
		speed defs.Speed
		found bool
	)
	_ = world.View(func(w *model.World) {
		pos, e, ok := defs.FindPlayer(w, client.Player)
		if !ok {
			return
		}
		if walking, ok := attr.Get[defs.Walking](e.Attributes); ok && now.Before(walking.Until) {
			return
		}
		speed, _ = attr.Get[defs.Speed](e.Attributes)
		from, found = pos, speed > 0
	})
	if !found {
		return game.Reaction{}
	}

	dx, dy := ev.Direction.Offset()
	to := from.Tile().Offset(dx, dy)
	s.log.WithFields(logrus.Fields{
		"player": client.Player,
		"from":   from.String(),
		"to":     to.String(),
	}).Debug("walk")
	return game.Reaction{
		Commands: []game.Command{
			game.SetEntityAttribute{Position: from, Attribute: defs.Walking{Until: now.Add(StepDuration(speed))}},
			game.SetEntityAttribute{Position: from, Attribute: ev.Direction},
		},
		Tasks: []game.Task{game.Once(defs.Move{From: from, To: to, Player: client.Player})},
	}
}

// onMove re-locates the player since its stack index may have changed while
// the move was in flight.
func (s *system) onMove(ev defs.Move, _ *game.Attributes, world *game.WorldHandle) game.Reaction {
	from := ev.From
	if ev.Player != 0 {
		ok := false
		_ = world.View(func(w *model.World) {
			var pos model.Position
			pos, _, ok = defs.FindPlayer(w, ev.Player)
			if ok && pos.Tile() == ev.From.Tile() {
				from = pos
			} else {
				ok = false
			}
		})
		if !ok {
			return game.Reaction{}
		}
	}
	return game.Reaction{Commands: []game.Command{game.MoveEntity{From: from, To: ev.To.Tile()}}}
}

func (s *system) onMovedEntity(ev game.MovedEntity, _ *game.Attributes, world *game.WorldHandle) game.Reaction {
	var events []game.Event
	_ = world.View(func(w *model.World) {
		dst, ok := w.Tile(ev.To)
		if !ok || len(dst.Entities) == 0 {
			return
		}
		top := uint16(len(dst.Entities) - 1)
		mover := ev.To.Tile().At(top)
		if src, ok := w.Tile(ev.From); ok {
			for i := range src.Entities {
				events = append(events, defs.Separation{First: ev.From.Tile().At(uint16(i)), Second: mover})
			}
		}
		for i := uint16(0); i < top; i++ {
			events = append(events, defs.Collision{First: ev.To.Tile().At(i), Second: mover})
		}
	})
	return game.Reaction{Commands: game.Emit(events...)}
}
