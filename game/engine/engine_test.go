package engine

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
)

func createTestConfig() *GameConfig {
	return &GameConfig{
		Name:        "engine-test",
		Description: "Configuration for engine tests",
		Width:       8,
		Height:      8,
		SnakeCount:  1,
		StartLength: 3,
		FoodCount:   2,
		Seed:        11,
	}
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	state := engine.Snapshot()
	if state.Turn != 0 {
		t.Errorf("Expected turn 0, got %d", state.Turn)
	}
	if len(state.Snakes) != 1 || state.Snakes[0].Length != 3 {
		t.Fatalf("Expected one snake of length 3, got %+v", state.Snakes)
	}
	if len(state.FoodPositions) != 2 {
		t.Errorf("Expected 2 food, got %v", state.FoodPositions)
	}
	if state.AliveCount != 1 || state.GameOver {
		t.Errorf("Expected a live game, got alive=%d over=%v", state.AliveCount, state.GameOver)
	}
	if len(state.Grid) != 8 || len(state.Tiles) != 8 {
		t.Errorf("Expected 8 rows and 8 columns, got %d and %d", len(state.Grid), len(state.Tiles))
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.Width = 0
	if _, err := NewEngine(config); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if _, err := NewEngine(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for nil config, got %v", err)
	}
}

func TestNewEngine_TightBoard(t *testing.T) {
	config := &GameConfig{Name: "pair", Width: 1, Height: 2, SnakeCount: 1, StartLength: 1, FoodCount: 1, Seed: 3}
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Expected a 1x2 board to be playable, got %v", err)
	}
	if state := e.Snapshot(); len(state.Snakes) != 1 || len(state.FoodPositions) != 1 {
		t.Errorf("Expected one snake and one food, got %+v", state)
	}
}

func TestEngine_SeedIsDeterministic(t *testing.T) {
	run := func() *State {
		e, err := NewEngine(createTestConfig())
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}
		for i := 0; i < 4; i++ {
			if _, err := e.Tick(); err != nil {
				break
			}
		}
		return e.Snapshot()
	}

	a, b := run(), run()
	if a.Turn != b.Turn {
		t.Fatalf("Expected same turn count, got %d and %d", a.Turn, b.Turn)
	}
	for i := range a.Grid {
		if a.Grid[i] != b.Grid[i] {
			t.Fatalf("Grids diverged at row %d:\n%v\n%v", i, a.Grid, b.Grid)
		}
	}
}

func TestEngine_Steer(t *testing.T) {
	config := createTestConfig()
	config.Spawns = []SnakeSpawn{{X: 3, Y: 3, Direction: "up"}}
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := e.Steer(0, Down); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected reversal to be rejected, got %v", err)
	}
	if err := e.Steer(5, Left); !errors.Is(err, ErrSnakeNotFound) {
		t.Errorf("Expected ErrSnakeNotFound, got %v", err)
	}
	if err := e.Steer(0, Left); err != nil {
		t.Fatalf("Steer left failed: %v", err)
	}

	if _, err := e.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	s := e.Snapshot().SnakeByID(0)
	if s.Position != pos(2, 3) || s.Direction != Left {
		t.Errorf("Expected head (2,3) heading left, got %v %s", s.Position, s.Direction)
	}

	if err := e.TurnSnake(0, TurnRight); err != nil {
		t.Fatalf("TurnSnake failed: %v", err)
	}
	e.Tick()
	if s := e.Snapshot().SnakeByID(0); s.Direction != Up {
		t.Errorf("Right of left is up, got %s", s.Direction)
	}
}

func TestEngine_GameOver(t *testing.T) {
	config := &GameConfig{
		Name:        "edge",
		Width:       5,
		Height:      5,
		SnakeCount:  1,
		StartLength: 1,
		FoodCount:   1,
		Spawns:      []SnakeSpawn{{X: 4, Y: 2, Direction: "right"}},
	}
	e, err := NewEngine(config, WithRand(fixedRand{0}))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := e.Tick()
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !report.GameOver || !e.IsGameOver() {
		t.Error("Expected game over after the only snake hits the wall")
	}
	if deaths := report.Deaths(); len(deaths) != 1 || deaths[0].Cause != CauseWall {
		t.Errorf("Expected one wall death, got %+v", deaths)
	}

	if _, err := e.Tick(); !errors.Is(err, ErrGameOver) {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
}

func TestEngine_WrapKeepsSnakeAlive(t *testing.T) {
	config := &GameConfig{
		Name:        "wrap",
		Width:       5,
		Height:      5,
		SnakeCount:  1,
		StartLength: 1,
		FoodCount:   1,
		Wrap:        true,
		Spawns:      []SnakeSpawn{{X: 4, Y: 2, Direction: "right"}},
	}
	e, err := NewEngine(config, WithRand(fixedRand{0}))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if _, err := e.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	s := e.Snapshot().SnakeByID(0)
	if !s.IsAlive || s.Position != pos(0, 2) {
		t.Errorf("Expected wrapped head at (0,2), got %v alive=%v", s.Position, s.IsAlive)
	}
}

func TestEngine_BoardFullEndsGame(t *testing.T) {
	config := &GameConfig{
		Name:        "corridor",
		Width:       4,
		Height:      1,
		SnakeCount:  1,
		StartLength: 2,
		FoodCount:   1,
		Spawns:      []SnakeSpawn{{X: 1, Y: 0, Direction: "right"}},
	}
	e, err := NewEngine(config, WithRand(fixedRand{0}))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	var report *TurnReport
	for i := 0; i < 2; i++ {
		if report, err = e.Tick(); err != nil {
			t.Fatalf("Tick %d failed: %v", i+1, err)
		}
	}

	state := e.Snapshot()
	if !report.GameOver || !state.BoardFull {
		t.Fatalf("Expected a full board to end the game, got %+v\n%v", report, state.Grid)
	}
	if s := state.SnakeByID(0); !s.IsAlive || s.Length != 4 || s.Score != 2 {
		t.Errorf("Expected a live snake filling the board, got %+v", s)
	}
}

func TestEngine_AteFoodLastsOneTurn(t *testing.T) {
	config := &GameConfig{
		Name:        "strip",
		Width:       5,
		Height:      2,
		SnakeCount:  1,
		StartLength: 2,
		FoodCount:   1,
		Spawns:      []SnakeSpawn{{X: 1, Y: 0, Direction: "right"}},
	}
	// index 2 of the free cells puts the first food at (2,0), right ahead
	e, err := NewEngine(config, WithRand(fixedRand{2}))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if food := e.Snapshot().FoodPositions; len(food) != 1 || food[0] != pos(2, 0) {
		t.Fatalf("Expected food at (2,0), got %v", food)
	}

	want := []struct {
		outcome Outcome
		ate     bool
	}{
		{OutcomeFood, true},
		{OutcomeEmpty, false},
		{OutcomeEmpty, false},
	}
	for i, w := range want {
		report, err := e.Tick()
		if err != nil {
			t.Fatalf("Tick %d failed: %v", i+1, err)
		}
		s := e.Snapshot().SnakeByID(0)
		if report.Results[0].Outcome != w.outcome || s.AteFood != w.ate {
			t.Errorf("turn %d: expected outcome=%s ate_food=%v, got outcome=%s ate_food=%v",
				i+1, w.outcome, w.ate, report.Results[0].Outcome, s.AteFood)
		}
	}
}

func TestEngine_Reset(t *testing.T) {
	e, err := NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.Tick()
	storage := &e.board.Tiles[0][0]

	state, err := e.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.Turn != 0 || state.GameOver || state.Episodes != 1 {
		t.Errorf("Expected fresh episode 1, got turn=%d over=%v episodes=%d", state.Turn, state.GameOver, state.Episodes)
	}
	if &e.board.Tiles[0][0] != storage {
		t.Error("Reset should reuse the board storage")
	}
	if len(state.FoodPositions) != 2 || len(state.Snakes) != 1 {
		t.Errorf("Expected a repopulated board, got %d food %d snakes", len(state.FoodPositions), len(state.Snakes))
	}
}

func TestEngine_SnapshotIsDetached(t *testing.T) {
	e, err := NewEngine(createTestConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	state := e.Snapshot()
	state.Snakes[0].Body[0] = pos(-9, -9)
	state.FoodPositions[0] = pos(-9, -9)
	state.Tiles[0][0] = TileWall

	fresh := e.Snapshot()
	if fresh.Snakes[0].Body[0] == pos(-9, -9) || fresh.FoodPositions[0] == pos(-9, -9) {
		t.Error("Mutating a snapshot leaked into the engine")
	}
	if fresh.Tiles[0][0] == TileWall {
		t.Error("Mutating snapshot tiles leaked into the engine")
	}
}

func TestEngine_Pilot(t *testing.T) {
	config := createTestConfig()
	config.Spawns = []SnakeSpawn{{X: 3, Y: 3, Direction: "up", Autopilot: true}}

	pilot := func(b *Board, s *Snake, wrap bool) Direction { return Right }
	e, err := NewEngine(config, WithPilot(pilot))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	e.Tick()
	if s := e.Snapshot().SnakeByID(0); s.Direction != Right || !s.Autopilot {
		t.Errorf("Expected autopilot snake to head right, got %s autopilot=%v", s.Direction, s.Autopilot)
	}
}

func TestEngine_DescribeTile(t *testing.T) {
	config := createTestConfig()
	config.Spawns = []SnakeSpawn{{X: 3, Y: 3, Direction: "up"}}
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	info, err := e.DescribeTile(3, 3)
	if err != nil {
		t.Fatalf("DescribeTile failed: %v", err)
	}
	if info.Type != TileSnake || info.SnakeID == nil || *info.SnakeID != 0 || !info.IsHead {
		t.Errorf("Expected head of snake 0, got %+v", info)
	}

	if _, err := e.DescribeTile(8, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEngine_SafeMoves(t *testing.T) {
	config := createTestConfig()
	config.Spawns = []SnakeSpawn{{X: 0, Y: 7, Direction: "up"}}
	e, err := NewEngine(config, WithRand(fixedRand{0}))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	moves, err := e.SafeMoves(0)
	if err != nil {
		t.Fatalf("SafeMoves failed: %v", err)
	}
	if len(moves) != 1 || moves[0] != Right {
		t.Errorf("Expected only right from the top-left corner, got %v", moves)
	}
}

func TestEngine_InvariantsUnderRandomPlay(t *testing.T) {
	config := createTestConfig()
	config.SnakeCount = 3
	config.FoodCount = 3
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		for _, s := range e.board.Snakes {
			if s.IsAlive {
				e.Steer(s.ID, Directions[rng.Intn(len(Directions))])
			}
		}
		if _, err := e.Tick(); errors.Is(err, ErrGameOver) {
			if _, err := e.Reset(); err != nil {
				t.Fatalf("Reset failed: %v", err)
			}
			continue
		} else if err != nil {
			t.Fatalf("Tick failed: %v", err)
		}

		for _, s := range e.board.Snakes {
			if len(s.Body) != s.Length {
				t.Fatalf("snake %d: body %d != length %d", s.ID, len(s.Body), s.Length)
			}
			if s.IsAlive && s.Body[0] != s.Position {
				t.Fatalf("snake %d: head %v != position %v", s.ID, s.Body[0], s.Position)
			}
		}
		assertFoodConsistent(t, e.board)
	}
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	config := createTestConfig()
	config.Wrap = true
	e, err := NewEngine(config)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					st := e.Snapshot()
					for _, s := range st.Snakes {
						if len(s.Body) != s.Length {
							t.Errorf("torn snapshot: body %d length %d", len(s.Body), s.Length)
							return
						}
					}
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if _, err := e.Tick(); errors.Is(err, ErrGameOver) {
			e.Reset()
		}
	}
	close(done)
	wg.Wait()
}
