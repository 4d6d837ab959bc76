// Package game is the reactive core: a single actor applies commands one at a
// time, commands emit events, events run registered effects, and effects
// return further commands (applied depth-first) and tasks (run concurrently).
package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// RunID tags every command record of this process. Seqs restart at 1 on
	// each run, so (RunID, Seq) is the record key. Empty selects a random id.
	RunID string
	// CommandBuffer is the capacity of the command channel. A full channel
	// blocks producers.
	CommandBuffer int
	// TaskBuffer is the capacity of the task registration channel.
	TaskBuffer int
	// MaxDepth bounds nested command application.
	MaxDepth int
}

func (c *Config) applyDefaults() {
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = 100
	}
	if c.TaskBuffer <= 0 {
		c.TaskBuffer = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 64
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
}

type envelope struct {
	cmd  Command
	done chan error
}

// Game owns all shared state for the process lifetime. All mutation of the
// world and the game attributes happens on the goroutine running Run.
type Game struct {
	cfg Config
	log *logrus.Entry

	bus   *Bus
	attrs *Attributes
	world *WorldHandle

	commands chan envelope
	tasks    chan Task

	stop      chan struct{}
	stopOnce  sync.Once
	running   atomic.Bool
	inflight  sync.WaitGroup
	schedDone chan struct{}

	// Optional (may be nil).
	recorder Recorder
	seq      uint64
}

func New(cfg Config, logger *logrus.Entry) *Game {
	cfg.applyDefaults()
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Game{
		cfg:       cfg,
		log:       logger,
		bus:       NewBus(),
		attrs:     newAttributes(),
		world:     newWorldHandle(),
		commands:  make(chan envelope, cfg.CommandBuffer),
		tasks:     make(chan Task, cfg.TaskBuffer),
		stop:      make(chan struct{}),
		schedDone: make(chan struct{}),
	}
}

func (g *Game) SetRecorder(r Recorder) { g.recorder = r }

func (g *Game) Config() Config          { return g.cfg }
func (g *Game) RunID() string           { return g.cfg.RunID }
func (g *Game) Bus() *Bus               { return g.bus }
func (g *Game) Attributes() *Attributes { return g.attrs }
func (g *Game) World() *WorldHandle     { return g.world }
func (g *Game) Logger() *logrus.Entry   { return g.log }

func (g *Game) Stopped() bool {
	select {
	case <-g.stop:
		return true
	default:
		return false
	}
}

// Submit enqueues cmd behind every previously submitted command. It blocks
// while the command channel is full.
func (g *Game) Submit(ctx context.Context, cmd Command) error {
	return g.enqueue(ctx, envelope{cmd: cmd})
}

// Apply enqueues cmd and waits until the actor has applied it together with
// every command and event it induced. It must not be called from an effect.
func (g *Game) Apply(ctx context.Context, cmd Command) error {
	done := make(chan error, 1)
	if err := g.enqueue(ctx, envelope{cmd: cmd, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-g.stop:
		// The command may have been the one that stopped the actor.
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn registers t for concurrent execution.
func (g *Game) Spawn(ctx context.Context, t Task) error {
	if t == nil {
		return errors.New("game: nil task")
	}
	if g.Stopped() {
		return ErrStopped
	}
	select {
	case g.tasks <- t:
		return nil
	case <-g.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Game) enqueue(ctx context.Context, env envelope) error {
	if env.cmd == nil {
		return errors.New("game: nil command")
	}
	if g.Stopped() {
		return ErrStopped
	}
	select {
	case g.commands <- env:
		return nil
	case <-g.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Game) shutdown() {
	g.stopOnce.Do(func() { close(g.stop) })
}
