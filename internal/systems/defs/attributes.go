// Package defs holds the domain vocabulary shared by the systems: entity and
// game attributes, domain events and item ids.
package defs

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/bpawel10/skyless/internal/core/attr"
)

// Item ids.
const (
	ItemGrass                uint16 = 106
	ItemStoneSwitchActivated uint16 = 430
	ItemStoneSwitch          uint16 = 431
	ItemLeverLeft            uint16 = 2772
	ItemLeverRight           uint16 = 2773
)

// Action names a scripted behavior attached to an item.
type Action string

const (
	ActionLever  Action = "lever"
	ActionSwitch Action = "switch"
)

type Direction uint8

const (
	North Direction = iota
	East
	South
	West
	SouthWest
	SouthEast
	NorthWest
	NorthEast
)

// Offset returns the tile delta of one step in d.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	case SouthWest:
		return -1, 1
	case SouthEast:
		return 1, 1
	case NorthWest:
		return -1, -1
	case NorthEast:
		return 1, -1
	}
	return 0, 0
}

func (d Direction) Valid() bool { return d <= NorthEast }

// Entity attributes.

type Item uint16

type Player uint32

type Name string

type Speed uint16

type Health struct {
	Value uint16 `json:"value"`
	Max   uint16 `json:"max"`
}

type Outfit struct {
	Type   uint16 `json:"type"`
	Head   uint8  `json:"head"`
	Body   uint8  `json:"body"`
	Legs   uint8  `json:"legs"`
	Feet   uint8  `json:"feet"`
	Addons uint8  `json:"addons"`
}

type LightInfo struct {
	Level uint8 `json:"level"`
	Color uint8 `json:"color"`
}

// Walking is the movement cooldown of a creature.
type Walking struct {
	Until time.Time `json:"until"`
}

func (Item) AttributeName() string      { return "item" }
func (Action) AttributeName() string    { return "action" }
func (Direction) AttributeName() string { return "direction" }
func (Player) AttributeName() string    { return "player" }
func (Name) AttributeName() string      { return "name" }
func (Speed) AttributeName() string     { return "speed" }
func (Health) AttributeName() string    { return "health" }
func (Outfit) AttributeName() string    { return "outfit" }
func (LightInfo) AttributeName() string { return "light_info" }
func (Walking) AttributeName() string   { return "walking" }

// Game attributes.

// Client is one logged-in connection.
type Client struct {
	Player Player `json:"player"`
	Sender Sender `json:"-"`
}

// Clients maps connection ids to logged-in clients. It is replaced wholesale
// on every change; never modify a value read from the game bag.
type Clients map[string]Client

// With returns a copy of c with id set to cl.
func (c Clients) With(id string, cl Client) Clients {
	out := make(Clients, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[id] = cl
	return out
}

// Without returns a copy of c without id.
func (c Clients) Without(id string) Clients {
	out := make(Clients, len(c))
	for k, v := range c {
		if k != id {
			out[k] = v
		}
	}
	return out
}

// Connections maps connection ids to every open connection, logged in or
// not. Copy-on-write like Clients.
type Connections map[string]Sender

func (c Connections) With(s Sender) Connections {
	out := make(Connections, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[s.ConnID()] = s
	return out
}

// MarshalJSON lists the connection ids only.
func (c Connections) MarshalJSON() ([]byte, error) {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return json.Marshal(ids)
}

func (c Connections) Without(id string) Connections {
	out := make(Connections, len(c))
	for k, v := range c {
		if k != id {
			out[k] = v
		}
	}
	return out
}

// PlayerSeq is the last allocated player id.
type PlayerSeq uint32

func (Clients) AttributeName() string     { return "clients" }
func (Connections) AttributeName() string { return "connections" }
func (PlayerSeq) AttributeName() string   { return "player_seq" }

var (
	_ attr.Attribute = Item(0)
	_ attr.Attribute = Clients(nil)
	_ attr.Attribute = Connections(nil)
)
