// Package network connects clients to the game: connection lifecycle, login,
// ping, item use and the broadcast of world changes.
package network

import (
	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

type Config struct {
	// Spawn is the tile new players are placed on.
	Spawn model.Position
	// Holding, when set, is the tile bodies of disconnected players are moved
	// to. It should lie outside every client's view.
	Holding *model.Position

	Speed  defs.Speed
	Health defs.Health
	Outfit defs.Outfit
	Light  defs.LightInfo
}

func (c *Config) applyDefaults() {
	c.Spawn = c.Spawn.Tile()
	if c.Holding != nil {
		h := c.Holding.Tile()
		c.Holding = &h
	}
	if c.Speed == 0 {
		c.Speed = 220
	}
	if c.Health.Max == 0 {
		c.Health = defs.Health{Value: 150, Max: 150}
	}
	if c.Outfit.Type == 0 {
		c.Outfit = defs.Outfit{Type: 128, Head: 78, Body: 69, Legs: 58, Feet: 76}
	}
	if c.Light.Level == 0 {
		c.Light = defs.LightInfo{Level: 7, Color: 215}
	}
}

type system struct {
	cfg Config
	log *logrus.Entry
}

func Register(g *game.Game, cfg Config) {
	cfg.applyDefaults()
	s := &system{cfg: cfg, log: g.Logger().WithField("component", "network")}
	bus := g.Bus()
	game.On(bus, s.onConnectionAccepted)
	game.On(bus, s.onConnectionClosed)
	game.On(bus, s.onLogin)
	game.On(bus, s.onPlayerJoined)
	game.On(bus, s.onPing)
	game.On(bus, s.onMovePayload)
	game.On(bus, s.onUseItem)
	game.On(bus, s.onMovedEntity)
	game.On(bus, s.onChangedEntity)
	game.On(bus, s.onRemovedEntity)
}

func (s *system) onConnectionAccepted(ev defs.ConnectionAccepted, attrs *game.Attributes, _ *game.WorldHandle) game.Reaction {
	if ev.Conn == nil {
		return game.Reaction{}
	}
	conns, _ := game.GameAttribute[defs.Connections](attrs)
	out := defs.NewOutbox(ev.Conn, 0)
	s.log.WithField("conn_id", ev.Conn.ConnID()).Info("connection accepted")
	return game.Reaction{
		Commands: []game.Command{game.SetGameAttribute{Attribute: conns.With(out)}},
		Tasks:    []game.Task{ev.Conn.Reader(), out.Pump()},
	}
}

func (s *system) onConnectionClosed(ev defs.ConnectionClosed, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	conns, _ := game.GameAttribute[defs.Connections](attrs)
	clients, _ := game.GameAttribute[defs.Clients](attrs)
	if out, ok := conns[ev.ConnID].(*defs.Outbox); ok {
		out.Close()
	}
	cmds := []game.Command{game.SetGameAttribute{Attribute: conns.Without(ev.ConnID)}}

	fields := logrus.Fields{"conn_id": ev.ConnID}
	if c, ok := clients[ev.ConnID]; ok {
		fields["player"] = c.Player
		cmds = append(cmds, game.SetGameAttribute{Attribute: clients.Without(ev.ConnID)})
		// There is no command removing an entity; the body loses its player
		// tag and is parked on the holding tile.
		_ = world.View(func(w *model.World) {
			if pos, _, ok := defs.FindPlayer(w, c.Player); ok {
				cmds = append(cmds, game.RemoveEntityAttribute{Position: pos, Name: attr.Name[defs.Player]()})
				if s.cfg.Holding != nil {
					cmds = append(cmds, game.MoveEntity{From: pos, To: *s.cfg.Holding})
				}
			}
		})
	}
	s.log.WithFields(fields).Info("connection closed")
	return game.Reaction{Commands: cmds}
}

func (s *system) onLogin(ev defs.LoginPayload, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	sender, ok := defs.SenderOf(attrs, ev.ConnID)
	if !ok {
		return game.Reaction{}
	}
	if _, ok := defs.ClientOf(attrs, ev.ConnID); ok {
		return replyError(sender, protocol.ErrAlreadyLoggedIn, "already logged in")
	}

	var (
		slot  uint16
		found bool
	)
	_ = world.View(func(w *model.World) {
		t, ok := w.Tile(s.cfg.Spawn)
		if ok {
			slot, found = uint16(len(t.Entities)), true
		}
	})
	if !found {
		s.log.WithField("spawn", s.cfg.Spawn.String()).Warn("login: no spawn tile")
		return replyError(sender, protocol.ErrInternal, "no spawn tile")
	}

	seq, _ := game.GameAttribute[defs.PlayerSeq](attrs)
	id := defs.Player(seq + 1)
	clients, _ := game.GameAttribute[defs.Clients](attrs)
	player := model.NewEntity(
		id,
		defs.Name(ev.Name),
		s.cfg.Speed,
		s.cfg.Health,
		s.cfg.Outfit,
		defs.South,
		s.cfg.Light,
	)

	s.log.WithFields(logrus.Fields{
		"conn_id": ev.ConnID,
		"player":  id,
		"name":    ev.Name,
	}).Info("login")
	return game.Reaction{Commands: []game.Command{
		game.SetGameAttribute{Attribute: defs.PlayerSeq(id)},
		game.SetGameAttribute{Attribute: clients.With(ev.ConnID, defs.Client{Player: id, Sender: sender})},
		game.AddEntity{Position: s.cfg.Spawn, Entity: player},
		game.EmitEvent{Event: defs.PlayerJoined{ConnID: ev.ConnID, Player: id, Position: s.cfg.Spawn.At(slot)}},
	}}
}

func (s *system) onPlayerJoined(ev defs.PlayerJoined, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	c, ok := defs.ClientOf(attrs, ev.ConnID)
	if !ok {
		return game.Reaction{}
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       ev.ConnID,
		PlayerID:        uint32(ev.Player),
		Position:        protocol.FromModel(ev.Position),
	}
	var m protocol.MapMsg
	if err := world.View(func(w *model.World) { m = mapMessage(w, ev.Position) }); err != nil {
		return game.Reaction{}
	}
	_ = c.Sender.Send(welcome)
	_ = c.Sender.Send(m)
	return game.Reaction{}
}

func (s *system) onPing(ev defs.PingPayload, attrs *game.Attributes, _ *game.WorldHandle) game.Reaction {
	sender, ok := defs.SenderOf(attrs, ev.ConnID)
	if !ok {
		return game.Reaction{}
	}
	_ = sender.Send(protocol.PongMsg{
		Type:            protocol.TypePong,
		ProtocolVersion: protocol.Version,
	})
	return game.Reaction{}
}

// onMovePayload only rejects anonymous moves; the movement system does the
// rest.
func (s *system) onMovePayload(ev defs.MovePayload, attrs *game.Attributes, _ *game.WorldHandle) game.Reaction {
	if _, ok := defs.ClientOf(attrs, ev.ConnID); ok {
		return game.Reaction{}
	}
	if sender, ok := defs.SenderOf(attrs, ev.ConnID); ok {
		return replyError(sender, protocol.ErrNotLoggedIn, "login first")
	}
	return game.Reaction{}
}

func (s *system) onUseItem(ev defs.UseItemPayload, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	sender, ok := defs.SenderOf(attrs, ev.ConnID)
	if !ok {
		return game.Reaction{}
	}
	c, ok := defs.ClientOf(attrs, ev.ConnID)
	if !ok {
		return replyError(sender, protocol.ErrNotLoggedIn, "login first")
	}

	var (
		source *model.Position
		match  bool
	)
	_ = world.View(func(w *model.World) {
		if e, ok := w.Entity(ev.Position); ok {
			it, ok := attr.Get[defs.Item](e.Attributes)
			match = ok && uint16(it) == ev.Item
		}
		if pos, _, ok := defs.FindPlayer(w, c.Player); ok {
			source = &pos
		}
	})
	if !match {
		return replyError(sender, protocol.ErrInvalidTarget, "no such item at "+ev.Position.String())
	}
	return game.Reaction{Commands: game.Emit(defs.Use{Source: source, Target: ev.Position})}
}

// onMovedEntity tells every client about the move, then sends the mover a
// map re-centred on its new tile so tiles entering the view arrive too.
func (s *system) onMovedEntity(ev game.MovedEntity, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	defs.Broadcast(attrs, protocol.MovedEntityMsg{
		Type:            protocol.TypeMovedEntity,
		ProtocolVersion: protocol.Version,
		From:            protocol.FromModel(ev.From),
		To:              protocol.FromModel(ev.To.Tile()),
	})

	clients, _ := game.GameAttribute[defs.Clients](attrs)
	if len(clients) == 0 {
		return game.Reaction{}
	}
	var (
		mover defs.Player
		m     protocol.MapMsg
		found bool
	)
	_ = world.View(func(w *model.World) {
		t, ok := w.Tile(ev.To)
		if !ok || len(t.Entities) == 0 {
			return
		}
		top := uint16(len(t.Entities) - 1)
		if mover, found = attr.Get[defs.Player](t.Entities[top].Attributes); found {
			m = mapMessage(w, ev.To.Tile().At(top))
		}
	})
	if !found {
		return game.Reaction{}
	}
	for _, c := range clients {
		if c.Player == mover && c.Sender != nil {
			_ = c.Sender.Send(m)
		}
	}
	return game.Reaction{}
}

func (s *system) onChangedEntity(ev game.ChangedEntity, attrs *game.Attributes, world *game.WorldHandle) game.Reaction {
	if ev.Attribute != attr.Name[defs.Item]() {
		return game.Reaction{}
	}
	var (
		item defs.Item
		ok   bool
	)
	_ = world.View(func(w *model.World) {
		if e, found := w.Entity(ev.Position); found {
			item, ok = attr.Get[defs.Item](e.Attributes)
		}
	})
	if !ok {
		return game.Reaction{}
	}
	defs.Broadcast(attrs, protocol.ChangedEntityMsg{
		Type:            protocol.TypeChangedEntity,
		ProtocolVersion: protocol.Version,
		Position:        protocol.FromModel(ev.Position),
		Item:            uint16(item),
	})
	return game.Reaction{}
}

func (s *system) onRemovedEntity(ev game.RemovedEntity, attrs *game.Attributes, _ *game.WorldHandle) game.Reaction {
	defs.Broadcast(attrs, protocol.RemovedEntityMsg{
		Type:            protocol.TypeRemovedEntity,
		ProtocolVersion: protocol.Version,
		Position:        protocol.FromModel(ev.Position),
		Attribute:       ev.Attribute,
	})
	return game.Reaction{}
}

func replyError(s defs.Sender, code, message string) game.Reaction {
	_ = s.Send(protocol.NewError(code, message))
	return game.Reaction{}
}
