package game

import "errors"

var (
	// ErrStopped is returned to producers once the actor has shut down.
	ErrStopped = errors.New("game: stopped")

	// ErrPoisoned means a previous panic left a shared handle in an unknown
	// state. It is fatal.
	ErrPoisoned = errors.New("game: shared state poisoned")

	// ErrRecursionLimit means a command/event cycle exceeded the configured
	// depth. It is fatal.
	ErrRecursionLimit = errors.New("game: dispatch depth limit exceeded")

	// ErrPanic wraps a panic recovered while applying a command.
	ErrPanic = errors.New("game: panic while applying command")
)
