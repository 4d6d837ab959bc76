package defs

import (
	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

// FindPlayer returns the entity address of player id.
func FindPlayer(w *model.World, id Player) (model.Position, *model.Entity, bool) {
	return w.FindEntity(func(e *model.Entity) bool {
		p, ok := attr.Get[Player](e.Attributes)
		return ok && p == id
	})
}

// IsPlayer reports whether the entity at pos is a player.
func IsPlayer(w *model.World, pos model.Position) bool {
	e, ok := w.Entity(pos)
	if !ok {
		return false
	}
	_, ok = attr.Get[Player](e.Attributes)
	return ok
}

// ClientOf returns the client logged in on connID.
func ClientOf(attrs *game.Attributes, connID string) (Client, bool) {
	clients, _ := game.GameAttribute[Clients](attrs)
	c, ok := clients[connID]
	return c, ok
}

// Broadcast sends msg to every logged-in client. Called from effects, it
// keeps messages in apply order per client.
func Broadcast(attrs *game.Attributes, msg any) {
	clients, _ := game.GameAttribute[Clients](attrs)
	for _, c := range clients {
		if c.Sender != nil {
			_ = c.Sender.Send(msg)
		}
	}
}

// SenderOf returns the open connection connID.
func SenderOf(attrs *game.Attributes, connID string) (Sender, bool) {
	conns, _ := game.GameAttribute[Connections](attrs)
	s, ok := conns[connID]
	return s, ok
}
