package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SnakeSpawn pins a snake's starting head and heading
type SnakeSpawn struct {
	X         int    `json:"x" yaml:"x"`
	Y         int    `json:"y" yaml:"y"`
	Direction string `json:"direction" yaml:"direction"`
	Autopilot bool   `json:"autopilot,omitempty" yaml:"autopilot,omitempty"`
}

// GameConfig represents the game configuration
type GameConfig struct {
	Name           string       `json:"name" yaml:"name"`
	Description    string       `json:"description,omitempty" yaml:"description,omitempty"`
	Width          int          `json:"width" yaml:"width"`
	Height         int          `json:"height" yaml:"height"`
	SnakeCount     int          `json:"snake_count" yaml:"snake_count"`
	StartLength    int          `json:"start_length" yaml:"start_length"`
	FoodCount      int          `json:"food_count" yaml:"food_count"`
	Wrap           bool         `json:"wrap" yaml:"wrap"`
	TurnDurationMs int          `json:"turn_duration_ms,omitempty" yaml:"turn_duration_ms,omitempty"`
	Seed           int64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Spawns         []SnakeSpawn `json:"spawns,omitempty" yaml:"spawns,omitempty"`
	Autopilot      []int        `json:"autopilot,omitempty" yaml:"autopilot,omitempty"`
}

// DefaultConfig returns the classic single-snake 10x10 board
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Single snake on a 10x10 board with one food",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		SnakeCount:  1,
		StartLength: DefaultStartLength,
		FoodCount:   DefaultFoodCount,
	}
}

// TurnDuration returns the runner interval for this config
func (c *GameConfig) TurnDuration() time.Duration {
	if c.TurnDurationMs <= 0 {
		return DefaultTurnDuration
	}
	return time.Duration(c.TurnDurationMs) * time.Millisecond
}

// IsAutopilot reports whether the snake with the given ID is bot-driven
func (c *GameConfig) IsAutopilot(id int) bool {
	for _, a := range c.Autopilot {
		if a == id {
			return true
		}
	}
	if id >= 0 && id < len(c.Spawns) {
		return c.Spawns[id].Autopilot
	}
	return false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("config validation: %s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return invalid("config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return invalid("name is required")
	}

	// Validate board size
	if config.Width < 1 || config.Width > MaxBoardSize {
		return invalid("width must be between 1 and %d, got %d", MaxBoardSize, config.Width)
	}
	if config.Height < 1 || config.Height > MaxBoardSize {
		return invalid("height must be between 1 and %d, got %d", MaxBoardSize, config.Height)
	}

	// Validate snakes and food
	if config.SnakeCount < 1 {
		return invalid("snake_count must be at least 1, got %d", config.SnakeCount)
	}
	if config.StartLength < 1 {
		return invalid("start_length must be at least 1, got %d", config.StartLength)
	}
	if config.FoodCount < 1 {
		return invalid("food_count must be at least 1, got %d", config.FoodCount)
	}
	if config.TurnDurationMs < 0 {
		return invalid("turn_duration_ms must not be negative, got %d", config.TurnDurationMs)
	}

	cells := config.Width * config.Height
	if config.FoodCount >= cells {
		return invalid("food_count %d must be less than the %d board cells", config.FoodCount, cells)
	}
	if need := config.SnakeCount*config.StartLength + config.FoodCount; need > cells {
		return invalid("%d snakes of length %d plus %d food need %d cells, board has %d",
			config.SnakeCount, config.StartLength, config.FoodCount, need, cells)
	}

	// Validate explicit spawns
	if len(config.Spawns) > 0 && len(config.Spawns) != config.SnakeCount {
		return invalid("spawns lists %d snakes but snake_count is %d", len(config.Spawns), config.SnakeCount)
	}
	occupied := make(map[Position]int)
	for i, sp := range config.Spawns {
		dir, err := ParseDirection(sp.Direction)
		if err != nil {
			return invalid("spawns[%d]: unknown direction %q", i, sp.Direction)
		}
		head := Position{X: sp.X, Y: sp.Y}
		for seg := 0; seg < config.StartLength; seg++ {
			p := head.Offset(dir, -seg)
			if p.X < 0 || p.X >= config.Width || p.Y < 0 || p.Y >= config.Height {
				return invalid("spawns[%d]: body segment %v is off the %dx%d board", i, p, config.Width, config.Height)
			}
			if other, ok := occupied[p]; ok {
				return invalid("spawns[%d]: body segment %v overlaps spawns[%d]", i, p, other)
			}
			occupied[p] = i
		}
	}

	for _, id := range config.Autopilot {
		if id < 0 || id >= config.SnakeCount {
			return invalid("autopilot id %d is not a snake (0..%d)", id, config.SnakeCount-1)
		}
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
