package game

import (
	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/model"
)

// Command is a request to mutate exactly one aggregate. The set is closed:
// only the commands declared in this file are applied by the actor.
type Command interface {
	CommandName() string
	command()
}

const (
	CmdEmitEvent             = "emit_event"
	CmdSetGameAttribute      = "set_game_attribute"
	CmdSetWorld              = "set_world"
	CmdAddEntity             = "add_entity"
	CmdSetEntityAttribute    = "set_entity_attribute"
	CmdRemoveEntityAttribute = "remove_entity_attribute"
	CmdMoveEntity            = "move_entity"
)

// EmitEvent dispatches Event immediately; it mutates nothing.
type EmitEvent struct {
	Event Event
}

// SetGameAttribute replaces Attribute in the game bag.
type SetGameAttribute struct {
	Attribute attr.Attribute
}

// SetWorld replaces the world wholesale.
type SetWorld struct {
	World *model.World
}

// AddEntity appends Entity to the tile at Position. No-op without a tile.
type AddEntity struct {
	Position model.Position
	Entity   *model.Entity
}

// SetEntityAttribute replaces Attribute on the entity at Position and
// emits ChangedEntity.
type SetEntityAttribute struct {
	Position  model.Position
	Attribute attr.Attribute
}

// RemoveEntityAttribute drops Name from the entity at Position and emits
// RemovedEntity.
type RemoveEntityAttribute struct {
	Position model.Position
	Name     string
}

// MoveEntity moves the entity at From (an entity address) to the top of the
// stack at To and emits MovedEntity.
type MoveEntity struct {
	From model.Position
	To   model.Position
}

func (EmitEvent) CommandName() string             { return CmdEmitEvent }
func (SetGameAttribute) CommandName() string      { return CmdSetGameAttribute }
func (SetWorld) CommandName() string              { return CmdSetWorld }
func (AddEntity) CommandName() string             { return CmdAddEntity }
func (SetEntityAttribute) CommandName() string    { return CmdSetEntityAttribute }
func (RemoveEntityAttribute) CommandName() string { return CmdRemoveEntityAttribute }
func (MoveEntity) CommandName() string            { return CmdMoveEntity }

func (EmitEvent) command()             {}
func (SetGameAttribute) command()      {}
func (SetWorld) command()              {}
func (AddEntity) command()             {}
func (SetEntityAttribute) command()    {}
func (RemoveEntityAttribute) command() {}
func (MoveEntity) command()            {}

// Emit is shorthand for wrapping events into EmitEvent commands.
func Emit(events ...Event) []Command {
	out := make([]Command, 0, len(events))
	for _, ev := range events {
		out = append(out, EmitEvent{Event: ev})
	}
	return out
}
