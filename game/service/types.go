package service

import (
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Running        bool               `json:"running"`
	GameState      *engine.State      `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// SteerRequest latches a heading for one snake. Exactly one of Direction
// (absolute: up, down, left, right) or Turn (relative: left, straight,
// right) is set.
type SteerRequest struct {
	SnakeID   int    `json:"snake_id"`
	Direction string `json:"direction,omitempty"`
	Turn      string `json:"turn,omitempty"`
}

// SteerResult reports the latched heading and the moves that are safe from it
type SteerResult struct {
	SnakeID       int                `json:"snake_id"`
	NextDirection engine.Direction   `json:"next_direction"`
	SafeMoves     []engine.Direction `json:"safe_moves"`
	GameState     *engine.State      `json:"game_state"`
}

// StepResult contains the result of a manual step of one or more turns
type StepResult struct {
	// Summary
	RequestedTurns int  `json:"requested_turns"`
	TurnsExecuted  int  `json:"turns_executed"`
	Truncated      bool `json:"truncated,omitempty"`
	Limit          int  `json:"limit,omitempty"`

	StartTurn     int    `json:"start_turn"`
	EndTurn       int    `json:"end_turn"`
	StoppedReason string `json:"stopped_reason,omitempty"` // game_over|board_full
	GameOver      bool   `json:"game_over"`

	// Per-turn reports (only for this call)
	Reports []*engine.TurnReport `json:"reports"`
	Events  []GameEvent          `json:"events"`

	GameState *engine.State `json:"game_state"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string           `json:"type"` // "food", "death", "game_over", "board_full", "reset"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Turn      int              `json:"turn"`
	SnakeID   *int             `json:"snake_id,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SnakeCount  int    `json:"snake_count"`
	Wrap        bool   `json:"wrap"`
}

// TurnObserver is notified after every turn of every session, whether the
// turn came from a manual step or the runner. kind is "turn" or "reset";
// report is nil for resets.
type TurnObserver func(sessionID, kind string, report *engine.TurnReport, state *engine.State)

// Event kinds passed to observers
const (
	KindTurn  = "turn"
	KindReset = "reset"
)

// eventsFromReport turns a report into the compact event list clients show
func eventsFromReport(report *engine.TurnReport) []GameEvent {
	now := time.Now()
	var events []GameEvent
	for _, res := range report.Results {
		id := res.SnakeID
		pos := res.Position
		switch {
		case !res.Alive && res.Cause != "":
			events = append(events, GameEvent{
				Type:      "death",
				Message:   fmt.Sprintf("snake %d died: %s", id, res.Cause),
				Timestamp: now,
				Turn:      report.Turn,
				SnakeID:   &id,
				Position:  &pos,
			})
		case res.Outcome == engine.OutcomeFood:
			events = append(events, GameEvent{
				Type:      "food",
				Message:   fmt.Sprintf("snake %d ate food, length %d", id, res.Length),
				Timestamp: now,
				Turn:      report.Turn,
				SnakeID:   &id,
				Position:  &pos,
			})
		}
	}
	if report.BoardFull {
		events = append(events, GameEvent{
			Type:      "board_full",
			Message:   "no free cell left for food",
			Timestamp: now,
			Turn:      report.Turn,
		})
	}
	if report.GameOver {
		events = append(events, GameEvent{
			Type:      "game_over",
			Message:   fmt.Sprintf("game over after turn %d", report.Turn),
			Timestamp: now,
			Turn:      report.Turn,
		})
	}
	return events
}
