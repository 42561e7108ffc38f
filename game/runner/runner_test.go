package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// fakeEngine ends the game after a fixed number of turns
type fakeEngine struct {
	mu      sync.Mutex
	turns   int
	endAt   int
	failAt  int
	tickErr error
}

func (f *fakeEngine) Tick() (*engine.TurnReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endAt > 0 && f.turns >= f.endAt {
		return nil, engine.ErrGameOver
	}
	if f.failAt > 0 && f.turns+1 == f.failAt {
		return nil, f.tickErr
	}
	f.turns++
	return &engine.TurnReport{Turn: f.turns, GameOver: f.endAt > 0 && f.turns == f.endAt}, nil
}

func (f *fakeEngine) Snapshot() *engine.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &engine.State{Turn: f.turns}
}

func (f *fakeEngine) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turns
}

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_StopsOnGameOver(t *testing.T) {
	eng := &fakeEngine{endAt: 3}

	var mu sync.Mutex
	var seen []int
	r := New(eng, time.Millisecond, func(rep *engine.TurnReport, st *engine.State) {
		mu.Lock()
		seen = append(seen, rep.Turn)
		mu.Unlock()
		if st.Turn != rep.Turn {
			t.Errorf("Snapshot turn %d does not match report turn %d", st.Turn, rep.Turn)
		}
	})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, r)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("Expected turns 1..3, got %v", seen)
	}
	if r.Running() {
		t.Error("Expected runner to be stopped after game over")
	}
}

func TestRunner_StartStop(t *testing.T) {
	eng := &fakeEngine{}
	r := New(eng, time.Millisecond, nil)

	if err := r.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for eng.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if r.Running() {
		t.Error("Expected runner to be stopped")
	}
	stopped := eng.count()
	time.Sleep(10 * time.Millisecond)
	if eng.count() != stopped {
		t.Error("Engine kept ticking after Stop")
	}

	// A stopped runner can be started again
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	r.Stop()
}

func TestRunner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(&fakeEngine{}, time.Millisecond, nil)

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cancel()
	waitDone(t, r)
	if r.Running() {
		t.Error("Expected runner to stop when its context is cancelled")
	}
}

func TestRunner_TickError(t *testing.T) {
	eng := &fakeEngine{failAt: 2, tickErr: errors.New("boom")}
	r := New(eng, time.Millisecond, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, r)
	if eng.count() != 1 {
		t.Errorf("Expected one completed turn before the failure, got %d", eng.count())
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	r := New(&fakeEngine{}, 0, nil)
	if r.Interval() != engine.DefaultTurnDuration {
		t.Errorf("Expected %v, got %v", engine.DefaultTurnDuration, r.Interval())
	}
	select {
	case <-r.Done():
	default:
		t.Error("Expected Done to be closed before Start")
	}
}
