// Package model holds the spatial data model: tiles keyed by position, each
// with an ordered stack of entities.
package model

import (
	"sort"

	"github.com/bpawel10/skyless/internal/core/attr"
)

// Entity is a creature, player or item occupying a tile slot.
type Entity struct {
	Attributes attr.Bag
}

func NewEntity(attrs ...attr.Attribute) *Entity {
	return &Entity{Attributes: attr.New(attrs...)}
}

func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	return &Entity{Attributes: e.Attributes.Clone()}
}

// Tile owns its attributes and an ordered entity list. Insertion order is
// stack order; the index of an entity is its stack position.
type Tile struct {
	Attributes attr.Bag
	Entities   []*Entity
}

func NewTile(entities ...*Entity) *Tile {
	return &Tile{Attributes: attr.Bag{}, Entities: entities}
}

func (t *Tile) Entity(i uint16) (*Entity, bool) {
	if t == nil || int(i) >= len(t.Entities) {
		return nil, false
	}
	return t.Entities[i], true
}

func (t *Tile) Push(e *Entity) {
	t.Entities = append(t.Entities, e)
}

// RemoveAt removes the entity at i. Later entities shift down by one.
func (t *Tile) RemoveAt(i uint16) (*Entity, bool) {
	if t == nil || int(i) >= len(t.Entities) {
		return nil, false
	}
	e := t.Entities[i]
	copy(t.Entities[i:], t.Entities[i+1:])
	t.Entities[len(t.Entities)-1] = nil
	t.Entities = t.Entities[:len(t.Entities)-1]
	return e, true
}

// Find returns the stack index of the first entity matching fn.
func (t *Tile) Find(fn func(*Entity) bool) (uint16, bool) {
	if t == nil {
		return 0, false
	}
	for i, e := range t.Entities {
		if fn(e) {
			return uint16(i), true
		}
	}
	return 0, false
}

func (t *Tile) Clone() *Tile {
	if t == nil {
		return nil
	}
	out := &Tile{
		Attributes: t.Attributes.Clone(),
		Entities:   make([]*Entity, len(t.Entities)),
	}
	for i, e := range t.Entities {
		out.Entities[i] = e.Clone()
	}
	return out
}

// World maps tile addresses to tiles. A missing key means there is no tile.
type World struct {
	tiles map[Position]*Tile
}

func NewWorld() *World {
	return &World{tiles: map[Position]*Tile{}}
}

// SetTile stores t under the tile address of pos; any stack index is dropped.
func (w *World) SetTile(pos Position, t *Tile) {
	if w.tiles == nil {
		w.tiles = map[Position]*Tile{}
	}
	w.tiles[pos.Tile()] = t
}

func (w *World) Tile(pos Position) (*Tile, bool) {
	if w == nil {
		return nil, false
	}
	t, ok := w.tiles[pos.Tile()]
	return t, ok
}

// Entity resolves an entity address. Tile addresses never resolve.
func (w *World) Entity(pos Position) (*Entity, bool) {
	i, ok := pos.Stack()
	if !ok {
		return nil, false
	}
	t, ok := w.Tile(pos)
	if !ok {
		return nil, false
	}
	return t.Entity(i)
}

// FindEntity scans every tile in deterministic order and returns the address
// of the first entity matching fn.
func (w *World) FindEntity(fn func(*Entity) bool) (Position, *Entity, bool) {
	for _, pos := range w.Positions() {
		t := w.tiles[pos]
		if i, ok := t.Find(fn); ok {
			return pos.At(i), t.Entities[i], true
		}
	}
	return Position{}, nil, false
}

func (w *World) Len() int {
	if w == nil {
		return 0
	}
	return len(w.tiles)
}

// Positions returns every tile address sorted by z, then y, then x.
func (w *World) Positions() []Position {
	if w == nil {
		return nil
	}
	out := make([]Position, 0, len(w.tiles))
	for p := range w.tiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out
}

// Clone deep-copies tiles and entity lists.
func (w *World) Clone() *World {
	out := NewWorld()
	if w == nil {
		return out
	}
	for p, t := range w.tiles {
		out.tiles[p] = t.Clone()
	}
	return out
}
