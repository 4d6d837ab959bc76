package game

import (
	"sync"
	"sync/atomic"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/model"
)

// shared guards one aggregate. A panic inside a critical section poisons it.
type shared[T any] struct {
	mu       sync.RWMutex
	v        T
	poisoned atomic.Bool
}

func (s *shared[T]) view(fn func(T)) error {
	if s.poisoned.Load() {
		return ErrPoisoned
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer s.poisonOnPanic()
	fn(s.v)
	return nil
}

func (s *shared[T]) update(fn func(T) T) error {
	if s.poisoned.Load() {
		return ErrPoisoned
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.poisonOnPanic()
	s.v = fn(s.v)
	return nil
}

func (s *shared[T]) poisonOnPanic() {
	if r := recover(); r != nil {
		s.poisoned.Store(true)
		panic(r)
	}
}

func (s *shared[T]) Poisoned() bool { return s.poisoned.Load() }

// Attributes is the single handle to the game attribute bag.
type Attributes struct {
	shared[attr.Bag]
}

func newAttributes() *Attributes {
	a := &Attributes{}
	a.v = attr.Bag{}
	return a
}

// View runs fn with shared access to the bag. fn must not modify it.
func (a *Attributes) View(fn func(b attr.Bag)) error {
	return a.view(fn)
}

func (a *Attributes) set(v attr.Attribute) error {
	return a.update(func(b attr.Bag) attr.Bag {
		b.Set(v)
		return b
	})
}

// GameAttribute reads T from the game bag. A poisoned handle reads as absent;
// the actor surfaces the poisoning on its next write.
func GameAttribute[T attr.Attribute](a *Attributes) (T, bool) {
	var (
		v  T
		ok bool
	)
	_ = a.View(func(b attr.Bag) {
		v, ok = attr.Get[T](b)
	})
	return v, ok
}

// WorldHandle is the single handle to the world. SetWorld swaps the world
// inside it, so holders of the handle always observe the current world.
type WorldHandle struct {
	shared[*model.World]
}

func newWorldHandle() *WorldHandle {
	h := &WorldHandle{}
	h.v = model.NewWorld()
	return h
}

// View runs fn with shared access to the world. fn must not modify it.
func (h *WorldHandle) View(fn func(w *model.World)) error {
	return h.view(fn)
}

func (h *WorldHandle) mutate(fn func(w *model.World)) error {
	return h.update(func(w *model.World) *model.World {
		fn(w)
		return w
	})
}

func (h *WorldHandle) replace(w *model.World) error {
	if w == nil {
		w = model.NewWorld()
	}
	return h.update(func(*model.World) *model.World { return w })
}
