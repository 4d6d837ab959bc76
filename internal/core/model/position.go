package model

import "fmt"

// Position addresses either a tile (HasStack == false) or the entity at
// StackPos inside that tile's entity list. All fields take part in equality.
type Position struct {
	X        uint16 `json:"x"`
	Y        uint16 `json:"y"`
	Z        uint8  `json:"z"`
	StackPos uint16 `json:"stack_pos,omitempty"`
	HasStack bool   `json:"has_stack,omitempty"`
}

// Pos builds a tile address.
func Pos(x, y uint16, z uint8) Position {
	return Position{X: x, Y: y, Z: z}
}

// Tile returns the tile address of p with the stack index cleared.
func (p Position) Tile() Position {
	p.StackPos = 0
	p.HasStack = false
	return p
}

// At returns the entity address of index i on p's tile.
func (p Position) At(i uint16) Position {
	p.StackPos = i
	p.HasStack = true
	return p
}

func (p Position) Stack() (uint16, bool) {
	return p.StackPos, p.HasStack
}

func (p Position) IsTile() bool { return !p.HasStack }

// Diff returns other - p per axis.
func (p Position) Diff(other Position) (dx, dy, dz int) {
	return int(other.X) - int(p.X), int(other.Y) - int(p.Y), int(other.Z) - int(p.Z)
}

// Offset moves p by (dx, dy) keeping z. Coordinates wrap like uint16 would.
func (p Position) Offset(dx, dy int) Position {
	p.X = uint16(int(p.X) + dx)
	p.Y = uint16(int(p.Y) + dy)
	return p
}

func (p Position) String() string {
	if p.HasStack {
		return fmt.Sprintf("(%d,%d,%d)#%d", p.X, p.Y, p.Z, p.StackPos)
	}
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}
