package game

import (
	"context"
	"errors"
)

// Run is the actor loop. It emits SystemsLoaded, then applies submitted
// commands one at a time until ctx ends or a fatal error occurs. Tasks are
// started by a scheduler goroutine owned by Run; Run returns only after the
// scheduler has exited, so no task starts once Run has returned.
func (g *Game) Run(ctx context.Context) error {
	if !g.running.CompareAndSwap(false, true) {
		return errors.New("game: already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		g.shutdown()
		cancel()
		<-g.schedDone
		g.drain()
	}()

	go g.schedule(ctx)

	g.log.WithField("run", g.cfg.RunID).Info("systems loaded")
	if err := g.process(ctx, EmitEvent{Event: SystemsLoaded{}}); err != nil {
		g.log.WithError(err).Error("fatal")
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-g.commands:
			err := g.process(ctx, env.cmd)
			if env.done != nil {
				env.done <- err
			}
			if err != nil {
				g.log.WithError(err).Error("fatal")
				return err
			}
		}
	}
}

// drain fails every waiter still queued after the actor stopped.
func (g *Game) drain() {
	for {
		select {
		case env := <-g.commands:
			if env.done != nil {
				env.done <- ErrStopped
			}
		default:
			return
		}
	}
}

// Wait blocks until every task started by the scheduler has returned.
func (g *Game) Wait() { g.inflight.Wait() }
