package defs

import (
	"time"

	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/core/model"
)

// Sender delivers a server message to one client. Send must not block on
// the network.
type Sender interface {
	ConnID() string
	Send(msg any) error
}

// Conn is an accepted client connection. Reader returns the task that turns
// inbound messages into payload events and ends with ConnectionClosed.
type Conn interface {
	Sender
	Reader() game.Task
	Close() error
}

// Move asks to move the entity at From onto the tile To.
type Move struct {
	From   model.Position
	To     model.Position
	Player Player
}

// Collision: Second arrived on top of First.
type Collision struct {
	First  model.Position
	Second model.Position
}

// Separation: Second left the tile of First.
type Separation struct {
	First  model.Position
	Second model.Position
}

type Use struct {
	Source *model.Position
	Target model.Position
}

type Tick struct {
	Interval time.Duration
}

type PlayerJoined struct {
	ConnID   string
	Player   Player
	Position model.Position
}

type ConnectionAccepted struct {
	Conn Conn
}

type ConnectionClosed struct {
	ConnID string
}

// Payload events carry decoded client messages.

type LoginPayload struct {
	ConnID string
	Name   string
}

type PingPayload struct {
	ConnID string
}

type MovePayload struct {
	ConnID    string
	Direction Direction
}

type UseItemPayload struct {
	ConnID   string
	Position model.Position
	Item     uint16
}

func (Move) EventName() string               { return "move" }
func (Collision) EventName() string          { return "collision" }
func (Separation) EventName() string         { return "separation" }
func (Use) EventName() string                { return "use" }
func (Tick) EventName() string               { return "tick" }
func (PlayerJoined) EventName() string       { return "player_joined" }
func (ConnectionAccepted) EventName() string { return "connection_accepted" }
func (ConnectionClosed) EventName() string   { return "connection_closed" }
func (LoginPayload) EventName() string       { return "login_payload" }
func (PingPayload) EventName() string        { return "ping_payload" }
func (MovePayload) EventName() string        { return "move_payload" }
func (UseItemPayload) EventName() string     { return "use_item_payload" }
