package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	Initialize() error
	Tick() (*TurnReport, error)
	Reset() (*State, error)

	// Input
	Steer(snakeID int, dir Direction) error
	TurnSnake(snakeID int, turn RelativeTurn) error

	// Queries
	Snapshot() *State
	SafeMoves(snakeID int) ([]Direction, error)
	DescribeTile(x, y int) (TileInfo, error)
	IsGameOver() bool
	GetTurn() int
	GetConfig() *GameConfig
}

// Pilot picks a heading for a bot-driven snake. It runs under the engine lock.
type Pilot func(b *Board, s *Snake, wrap bool) Direction

// Option configures a GameEngine
type Option func(*GameEngine)

// WithRand overrides the seeded random source
func WithRand(rng Rand) Option {
	return func(e *GameEngine) {
		e.rng = rng
	}
}

// WithPilot sets the steering function used for autopilot snakes
func WithPilot(p Pilot) Option {
	return func(e *GameEngine) {
		e.pilot = p
	}
}

// TileInfo describes a single tile for clients
type TileInfo struct {
	Position Position `json:"position"`
	Type     TileType `json:"type"`
	SnakeID  *int     `json:"snake_id,omitempty"`
	IsHead   bool     `json:"is_head,omitempty"`
}

// GameEngine implements the Engine interface. Every method takes the lock,
// so a Tick is atomic to Snapshot readers.
type GameEngine struct {
	mu         sync.RWMutex
	config     *GameConfig
	board      *Board
	controller *Controller
	rng        Rand
	pilot      Pilot

	turn      int
	gameOver  bool
	boardFull bool
	episodes  int
	bestScore int
}

// NewEngine creates and initializes a game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{config: config}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		e.rng = rand.New(rand.NewSource(seed))
	}
	e.controller = NewController(config.Wrap, e.rng)

	if err := e.Initialize(); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize builds the board, snakes and food from the config
func (e *GameEngine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialize()
}

func (e *GameEngine) initialize() error {
	cfg := e.config

	if e.board == nil {
		board, err := NewBoard(cfg.Width, cfg.Height)
		if err != nil {
			return err
		}
		e.board = board
	} else if err := e.board.Reset(nil, cfg.Width, cfg.Height); err != nil {
		return err
	}

	if len(cfg.Spawns) > 0 {
		for i, sp := range cfg.Spawns {
			dir, err := ParseDirection(sp.Direction)
			if err != nil {
				return err
			}
			s, err := NewSnake(i, Position{X: sp.X, Y: sp.Y}, dir, cfg.StartLength)
			if err != nil {
				return err
			}
			e.board.Snakes = append(e.board.Snakes, s)
			e.board.DrawSnake(s)
		}
	} else if _, err := e.controller.CreateSnakes(e.board, cfg.SnakeCount, cfg.StartLength); err != nil {
		return fmt.Errorf("initialize %q: %w", cfg.Name, err)
	}

	for _, s := range e.board.Snakes {
		s.Autopilot = cfg.IsAutopilot(s.ID)
	}

	for i := 0; i < cfg.FoodCount; i++ {
		if _, err := e.board.SpawnFood(e.rng); err != nil {
			if errors.Is(err, ErrNoSpaceAvailable) {
				break
			}
			return err
		}
	}

	e.turn = 0
	e.gameOver = false
	e.boardFull = false
	return nil
}

// Tick advances the game by one turn
func (e *GameEngine) Tick() (*TurnReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return nil, ErrGameOver
	}

	if e.pilot != nil {
		for _, s := range e.board.Snakes {
			if s.IsAlive && s.Autopilot {
				s.Steer(e.pilot(e.board, s, e.config.Wrap))
			}
		}
	}

	report, err := e.controller.Turn(e.board)
	if err != nil {
		return nil, fmt.Errorf("turn %d: %w", e.turn+1, err)
	}

	e.turn++
	report.Turn = e.turn
	if report.BoardFull && len(e.board.FoodPositions) == 0 {
		e.boardFull = true
	}
	alive := 0
	for _, s := range e.board.Snakes {
		if s.IsAlive {
			alive++
		}
		if s.Score > e.bestScore {
			e.bestScore = s.Score
		}
	}
	if alive == 0 || e.boardFull {
		e.gameOver = true
	}
	report.GameOver = e.gameOver

	return report, nil
}

// Reset starts a new episode on the same board storage
func (e *GameEngine) Reset() (*State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.episodes++
	if err := e.initialize(); err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (e *GameEngine) findSnake(id int) (*Snake, error) {
	s := e.board.SnakeByID(id)
	if s == nil {
		return nil, fmt.Errorf("snake %d: %w", id, ErrSnakeNotFound)
	}
	return s, nil
}

// Steer latches an absolute heading for the next tick
func (e *GameEngine) Steer(snakeID int, dir Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.findSnake(snakeID)
	if err != nil {
		return err
	}
	if !s.IsAlive {
		return fmt.Errorf("snake %d is dead: %w", snakeID, ErrInvalidArgument)
	}
	if !s.Steer(dir) {
		return fmt.Errorf("snake %d cannot turn %s while heading %s: %w", snakeID, dir, s.Direction, ErrInvalidArgument)
	}
	return nil
}

// TurnSnake latches a heading relative to the snake's committed heading
func (e *GameEngine) TurnSnake(snakeID int, turn RelativeTurn) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.findSnake(snakeID)
	if err != nil {
		return err
	}
	if !s.IsAlive {
		return fmt.Errorf("snake %d is dead: %w", snakeID, ErrInvalidArgument)
	}
	if !s.Turn(turn) {
		return fmt.Errorf("snake %d: unknown turn %d: %w", snakeID, turn, ErrInvalidArgument)
	}
	return nil
}

// Snapshot returns a deep copy of the current state
func (e *GameEngine) Snapshot() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot()
}

func (e *GameEngine) snapshot() *State {
	b := e.board
	st := &State{
		ConfigName:    e.config.Name,
		Width:         b.Width,
		Height:        b.Height,
		Wrap:          e.config.Wrap,
		Turn:          e.turn,
		Tiles:         make([][]TileType, b.Width),
		Grid:          b.Rows(),
		Snakes:        make([]Snake, 0, len(b.Snakes)),
		FoodPositions: append([]Position{}, b.FoodPositions...),
		GameOver:      e.gameOver,
		BoardFull:     e.boardFull,
		Episodes:      e.episodes,
		BestScore:     e.bestScore,
	}
	for x := range b.Tiles {
		st.Tiles[x] = make([]TileType, b.Height)
		for y := range b.Tiles[x] {
			st.Tiles[x][y] = b.Tiles[x][y].Type
		}
	}
	for _, s := range b.Snakes {
		st.Snakes = append(st.Snakes, *s.Clone())
		if s.IsAlive {
			st.AliveCount++
		}
	}
	return st
}

// SafeMoves returns the headings that keep the snake alive this turn
func (e *GameEngine) SafeMoves(snakeID int) ([]Direction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s, err := e.findSnake(snakeID)
	if err != nil {
		return nil, err
	}
	if !s.IsAlive {
		return nil, nil
	}
	return SafeDirections(e.board, s, e.config.Wrap), nil
}

// DescribeTile reports the tile at x,y and its occupant
func (e *GameEngine) DescribeTile(x, y int) (TileInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tile, err := e.board.GetTile(x, y)
	if err != nil {
		return TileInfo{}, err
	}
	info := TileInfo{Position: Position{X: x, Y: y}, Type: tile.Type}
	if tile.Occupant != nil {
		id := tile.Occupant.ID
		info.SnakeID = &id
		info.IsHead = tile.Occupant.Position == info.Position
	}
	return info, nil
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gameOver
}

// GetTurn returns the number of completed turns this episode
func (e *GameEngine) GetTurn() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.turn
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}
