package network

import (
	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/model"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
)

// Visible area around a player, in tiles from its own.
const (
	viewportX = 8
	viewportY = 6
)

func mapMessage(w *model.World, center model.Position) protocol.MapMsg {
	msg := protocol.MapMsg{
		Type:            protocol.TypeMap,
		ProtocolVersion: protocol.Version,
		Center:          protocol.FromModel(center.Tile()),
		Tiles:           []protocol.MapTile{},
	}
	for _, pos := range w.Positions() {
		if pos.Z != center.Z {
			continue
		}
		dx, dy, _ := center.Diff(pos)
		if dx < -viewportX || dx > viewportX+1 || dy < -viewportY || dy > viewportY+1 {
			continue
		}
		t, _ := w.Tile(pos)
		mt := protocol.MapTile{Position: protocol.FromModel(pos), Entities: make([]protocol.MapEntity, 0, len(t.Entities))}
		for _, e := range t.Entities {
			mt.Entities = append(mt.Entities, mapEntity(e.Attributes))
		}
		msg.Tiles = append(msg.Tiles, mt)
	}
	return msg
}

func mapEntity(b attr.Bag) protocol.MapEntity {
	var out protocol.MapEntity
	if it, ok := attr.Get[defs.Item](b); ok {
		out.Item = uint16(it)
	}
	id, ok := attr.Get[defs.Player](b)
	if !ok {
		return out
	}
	name, _ := attr.Get[defs.Name](b)
	health, _ := attr.Get[defs.Health](b)
	dir, _ := attr.Get[defs.Direction](b)
	speed, _ := attr.Get[defs.Speed](b)
	outfit, _ := attr.Get[defs.Outfit](b)
	light, _ := attr.Get[defs.LightInfo](b)
	out.Creature = &protocol.Creature{
		ID:        uint32(id),
		Name:      string(name),
		Health:    [2]int{int(health.Value), int(health.Max)},
		Direction: uint8(dir),
		Speed:     uint16(speed),
		Outfit:    protocol.Outfit(outfit),
		Light:     [2]int{int(light.Level), int(light.Color)},
	}
	return out
}
