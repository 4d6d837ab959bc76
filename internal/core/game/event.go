package game

import (
	"sync"

	"github.com/bpawel10/skyless/internal/core/model"
)

// Event is an immutable, named fact. EventName returns a constant tag derived
// the same way attribute tags are. Events are passed by value.
type Event interface {
	EventName() string
}

// SystemsLoaded is emitted once when the actor starts, after startup
// registration.
type SystemsLoaded struct{}

type MovedEntity struct {
	From model.Position
	To   model.Position
}

type ChangedEntity struct {
	Position  model.Position
	Attribute string
}

type RemovedEntity struct {
	Position  model.Position
	Attribute string
}

func (SystemsLoaded) EventName() string { return "systems_loaded" }
func (MovedEntity) EventName() string   { return "moved_entity" }
func (ChangedEntity) EventName() string { return "changed_entity" }
func (RemovedEntity) EventName() string { return "removed_entity" }

// Reaction is what an effect returns. The zero value means no reaction.
type Reaction struct {
	Commands []Command
	Tasks    []Task
}

func (r Reaction) Empty() bool { return len(r.Commands) == 0 && len(r.Tasks) == 0 }

// Effect reacts to an event with read access to game state. It must not
// mutate the handles; writes go through the returned commands.
type Effect func(ev Event, attrs *Attributes, world *WorldHandle) Reaction

// Bus maps event names to effects in registration order.
type Bus struct {
	mu      sync.RWMutex
	effects map[string][]Effect
}

func NewBus() *Bus {
	return &Bus{effects: map[string][]Effect{}}
}

// Register appends fx to the effects of name. Events dispatched before the
// registration are not replayed.
func (b *Bus) Register(name string, fx Effect) {
	if fx == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.effects[name] = append(b.effects[name], fx)
}

func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.effects[name])
}

func (b *Bus) snapshot(name string) []Effect {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fx := b.effects[name]
	if len(fx) == 0 {
		return nil
	}
	out := make([]Effect, len(fx))
	copy(out, fx)
	return out
}

// On registers fn under E's tag. Events of another dynamic type carrying the
// same tag are ignored.
func On[E Event](b *Bus, fn func(ev E, attrs *Attributes, world *WorldHandle) Reaction) {
	var zero E
	b.Register(zero.EventName(), func(ev Event, attrs *Attributes, world *WorldHandle) Reaction {
		e, ok := ev.(E)
		if !ok {
			return Reaction{}
		}
		return fn(e, attrs, world)
	})
}
