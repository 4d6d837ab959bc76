package protocol

import "github.com/bpawel10/skyless/internal/core/model"

// Pos is a map position on the wire. Stack is set for entity addresses.
type Pos struct {
	X     uint16  `json:"x"`
	Y     uint16  `json:"y"`
	Z     uint8   `json:"z"`
	Stack *uint16 `json:"stack,omitempty"`
}

func FromModel(p model.Position) Pos {
	out := Pos{X: p.X, Y: p.Y, Z: p.Z}
	if i, ok := p.Stack(); ok {
		out.Stack = &i
	}
	return out
}

func (p Pos) Model() model.Position {
	m := model.Pos(p.X, p.Y, p.Z)
	if p.Stack != nil {
		m = m.At(*p.Stack)
	}
	return m
}

// LOGIN (client -> server)
type LoginMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
}

// PING (client -> server)
type PingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// MOVE (client -> server)
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Direction       uint8  `json:"direction"`
}

// USE_ITEM (client -> server)
type UseItemMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Position        Pos    `json:"position"`
	Item            uint16 `json:"item"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	PlayerID        uint32 `json:"player_id"`
	Position        Pos    `json:"position"`
}

// PONG (server -> client)
type PongMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// MAP (server -> client): every tile the client can see.
type MapMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Center          Pos       `json:"center"`
	Tiles           []MapTile `json:"tiles"`
}

type MapTile struct {
	Position Pos         `json:"position"`
	Entities []MapEntity `json:"entities"`
}

// MapEntity is an item, a creature, or both.
type MapEntity struct {
	Item     uint16    `json:"item,omitempty"`
	Creature *Creature `json:"creature,omitempty"`
}

type Creature struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Health    [2]int `json:"health"` // value, max
	Direction uint8  `json:"direction"`
	Speed     uint16 `json:"speed"`
	Outfit    Outfit `json:"outfit"`
	Light     [2]int `json:"light"` // level, color
}

type Outfit struct {
	Type   uint16 `json:"type"`
	Head   uint8  `json:"head"`
	Body   uint8  `json:"body"`
	Legs   uint8  `json:"legs"`
	Feet   uint8  `json:"feet"`
	Addons uint8  `json:"addons"`
}

// MOVED_ENTITY (server -> client)
type MovedEntityMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	From            Pos    `json:"from"`
	To              Pos    `json:"to"`
}

// CHANGED_ENTITY (server -> client)
type ChangedEntityMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Position        Pos    `json:"position"`
	Item            uint16 `json:"item"`
}

// REMOVED_ENTITY (server -> client)
type RemovedEntityMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Position        Pos    `json:"position"`
	Attribute       string `json:"attribute"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
