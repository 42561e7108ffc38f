// Package runner drives an engine at a fixed turn duration.
//
// A Runner owns one goroutine per started loop. Each tick advances the
// engine by one turn and hands the report and a fresh snapshot to the
// observer. The loop ends when the game is over, when Stop is called or
// when the start context is cancelled.
//
//	r := runner.New(eng, 200*time.Millisecond, func(rep *engine.TurnReport, st *engine.State) {
//		hub.BroadcastTurn(sessionID, "turn", rep, st)
//	})
//	if err := r.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	<-r.Done()
package runner

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

var (
	ErrAlreadyRunning = errors.New("runner already running")
	ErrNotRunning     = errors.New("runner not running")
)

// Ticker is the part of the engine the runner drives
type Ticker interface {
	Tick() (*engine.TurnReport, error)
	Snapshot() *engine.State
}

// Observer receives every completed turn
type Observer func(report *engine.TurnReport, state *engine.State)

// Runner ticks an engine on a fixed interval
type Runner struct {
	engine   Ticker
	interval time.Duration
	onTurn   Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped runner. A non-positive interval uses engine.DefaultTurnDuration.
func New(eng Ticker, interval time.Duration, onTurn Observer) *Runner {
	if interval <= 0 {
		interval = engine.DefaultTurnDuration
	}
	done := make(chan struct{})
	close(done)
	return &Runner{
		engine:   eng,
		interval: interval,
		onTurn:   onTurn,
		done:     done,
	}
}

// Start launches the tick loop
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	return nil
}

// Stop cancels the loop and waits for it to exit
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	return nil
}

// Running reports whether the loop is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Done is closed when the current loop exits. It is already closed for a
// runner that was never started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Interval returns the turn duration
func (r *Runner) Interval() time.Duration {
	return r.interval
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer func() {
		ticker.Stop()
		r.mu.Lock()
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.engine.Tick()
			if errors.Is(err, engine.ErrGameOver) {
				return
			}
			if err != nil {
				log.Printf("[RUNNER] tick failed: %v", err)
				return
			}
			if r.onTurn != nil {
				r.onTurn(report, r.engine.Snapshot())
			}
			if report.GameOver {
				return
			}
		}
	}
}
