package engine

import (
	"fmt"
	"strings"
	"time"
)

// TileType represents what a board tile currently holds
type TileType string

const (
	TileEmpty   TileType = "empty"
	TileFood    TileType = "food"
	TileSnake   TileType = "snake"
	TileWall    TileType = "wall"
	TilePath    TileType = "path"    // analysis marker, counts as empty
	TileBlocked TileType = "blocked" // analysis marker, counts as empty

	// Validation constants
	MaxBoardSize      = 100
	MaxStepTurns      = 100
	EnclosedThreshold = 3

	DefaultWidth        = 10
	DefaultHeight       = 10
	DefaultStartLength  = 3
	DefaultFoodCount    = 1
	DefaultTurnDuration = 200 * time.Millisecond
)

// Walkable reports whether a snake may enter a tile of this type
func (t TileType) Walkable() bool {
	return t == TileEmpty || t == TileFood || t == TilePath || t == TileBlocked
}

// Tile is a single grid cell. Occupant is display-only.
type Tile struct {
	Type     TileType `json:"type"`
	Occupant *Snake   `json:"-"`
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Step returns the position one step along d
func (p Position) Step(d Direction) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - o
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Offset returns p moved n steps along d; negative n walks backwards
func (p Position) Offset(d Direction, n int) Position {
	return Position{X: p.X + d.X*n, Y: p.Y + d.Y*n}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is a unit heading
type Direction struct {
	X int
	Y int
}

var (
	Up    = Direction{X: 0, Y: 1}
	Down  = Direction{X: 0, Y: -1}
	Left  = Direction{X: -1, Y: 0}
	Right = Direction{X: 1, Y: 0}

	// Directions lists the headings in a fixed order
	Directions = []Direction{Up, Down, Left, Right}
)

// ParseDirection converts "up", "down", "left" or "right" into a heading
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Direction{}, fmt.Errorf("direction %q: %w", name, ErrInvalidArgument)
}

// IsValid reports whether d is one of the four unit headings
func (d Direction) IsValid() bool {
	return (d.X == 0) != (d.Y == 0) && d.X*d.X+d.Y*d.Y == 1
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	return Direction{X: -d.X, Y: -d.Y}
}

// RotateClockwise turns d a quarter to the right
func (d Direction) RotateClockwise() Direction {
	return Direction{X: d.Y, Y: -d.X}
}

// RotateCounterClockwise turns d a quarter to the left
func (d Direction) RotateCounterClockwise() Direction {
	return Direction{X: -d.Y, Y: d.X}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

// MarshalText encodes the heading by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a heading name; "none" and "" decode to the zero value
func (d *Direction) UnmarshalText(text []byte) error {
	if s := string(text); s == "" || s == "none" {
		*d = Direction{}
		return nil
	}
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RelativeTurn is an action relative to the current heading
type RelativeTurn int

const (
	TurnLeft RelativeTurn = iota
	Straight
	TurnRight
)

// ParseRelativeTurn converts "left", "straight" or "right" into a RelativeTurn
func ParseRelativeTurn(name string) (RelativeTurn, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return TurnLeft, nil
	case "straight", "forward":
		return Straight, nil
	case "right":
		return TurnRight, nil
	}
	return 0, fmt.Errorf("turn %q: %w", name, ErrInvalidArgument)
}

// Apply returns the heading reached from d by this turn
func (r RelativeTurn) Apply(d Direction) (Direction, bool) {
	switch r {
	case TurnLeft:
		return d.RotateCounterClockwise(), true
	case Straight:
		return d, true
	case TurnRight:
		return d.RotateClockwise(), true
	}
	return d, false
}

// Outcome classifies what a snake's next head cell holds
type Outcome string

const (
	OutcomeEmpty Outcome = "empty"
	OutcomeFood  Outcome = "food"
	OutcomeSnake Outcome = "snake"
	OutcomeWall  Outcome = "wall"
)

// Death causes reported in SnakeResult.Cause
const (
	CauseWall   = "wall"
	CauseSnake  = "snake"
	CauseHeadOn = "head_on"
)

// Rand is the random source used for food and snake placement.
// *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// SnakeResult is one snake's part of a turn
type SnakeResult struct {
	SnakeID   int       `json:"snake_id"`
	Outcome   Outcome   `json:"outcome"`
	Position  Position  `json:"position"`
	Direction Direction `json:"direction"`
	Length    int       `json:"length"`
	Score     int       `json:"score"`
	Alive     bool      `json:"alive"`
	Cause     string    `json:"cause,omitempty"`
}

// TurnReport describes what happened during one turn
type TurnReport struct {
	Turn        int           `json:"turn"`
	Results     []SnakeResult `json:"results"`
	FoodSpawned []Position    `json:"food_spawned,omitempty"`
	BoardFull   bool          `json:"board_full,omitempty"`
	GameOver    bool          `json:"game_over"`
}

// Deaths returns the results of snakes that died this turn
func (r *TurnReport) Deaths() []SnakeResult {
	var dead []SnakeResult
	for _, res := range r.Results {
		if !res.Alive {
			dead = append(dead, res)
		}
	}
	return dead
}

// State is a detached copy of an engine's board, safe to hand to readers
type State struct {
	ConfigName    string       `json:"config_name"`
	Width         int          `json:"width"`
	Height        int          `json:"height"`
	Wrap          bool         `json:"wrap"`
	Turn          int          `json:"turn"`
	Tiles         [][]TileType `json:"tiles"`
	Grid          []string     `json:"grid"`
	Snakes        []Snake      `json:"snakes"`
	FoodPositions []Position   `json:"food_positions"`
	AliveCount    int          `json:"alive_count"`
	GameOver      bool         `json:"game_over"`
	BoardFull     bool         `json:"board_full"`
	Episodes      int          `json:"episodes"`
	BestScore     int          `json:"best_score"`
}

// SnakeByID returns the snake with the given ID, or nil
func (s *State) SnakeByID(id int) *Snake {
	for i := range s.Snakes {
		if s.Snakes[i].ID == id {
			return &s.Snakes[i]
		}
	}
	return nil
}
