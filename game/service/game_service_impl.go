package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex

	observersMu sync.RWMutex
	observers   []TurnObserver
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Running:        sess.Running(),
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// getSession looks up a session and marks it accessed
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// Subscribe registers an observer for turns and resets of every session
func (s *gameServiceImpl) Subscribe(observer TurnObserver) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *gameServiceImpl) notify(sessionID, kind string, report *engine.TurnReport, state *engine.State) {
	s.observersMu.RLock()
	observers := s.observers
	s.observersMu.RUnlock()

	for _, observer := range observers {
		observer(sessionID, kind, report, state)
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if availableConfigs, listErr := s.configs.ListConfigs(); listErr == nil && len(availableConfigs) > 0 {
				var configIDs []string
				for _, cfg := range availableConfigs {
					configIDs = append(configIDs, cfg.ConfigID)
				}
				return nil, fmt.Errorf("config '%s' (available: %v): %w", configName, configIDs, err)
			}
			return nil, fmt.Errorf("config '%s': %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessionInfo(session, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession stops the session's runner and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Steer latches a heading for one snake
func (s *gameServiceImpl) Steer(ctx context.Context, sessionID string, req SteerRequest) (*SteerResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Engine.IsGameOver() {
		return nil, engine.ErrGameOver
	}

	switch {
	case req.Direction != "" && req.Turn != "":
		return nil, fmt.Errorf("steer: direction and turn are exclusive: %w", engine.ErrInvalidArgument)
	case req.Direction != "":
		dir, err := engine.ParseDirection(req.Direction)
		if err != nil {
			return nil, err
		}
		if err := sess.Engine.Steer(req.SnakeID, dir); err != nil {
			return nil, err
		}
	case req.Turn != "":
		turn, err := engine.ParseRelativeTurn(req.Turn)
		if err != nil {
			return nil, err
		}
		if err := sess.Engine.TurnSnake(req.SnakeID, turn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("steer: direction or turn required: %w", engine.ErrInvalidArgument)
	}

	state := sess.Engine.Snapshot()
	safe, err := sess.Engine.SafeMoves(req.SnakeID)
	if err != nil {
		return nil, err
	}
	result := &SteerResult{
		SnakeID:   req.SnakeID,
		SafeMoves: safe,
		GameState: state,
	}
	if snake := state.SnakeByID(req.SnakeID); snake != nil {
		result.NextDirection = snake.NextDirection
	}
	return result, nil
}

// Step advances a stopped session by up to engine.MaxStepTurns turns,
// stopping early at game over
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string, turns int) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Running() {
		return nil, fmt.Errorf("step %s: %w", sessionID, ErrSessionRunning)
	}
	if turns < 1 {
		return nil, fmt.Errorf("step %d turns: %w", turns, engine.ErrInvalidArgument)
	}
	if sess.Engine.IsGameOver() {
		return nil, engine.ErrGameOver
	}

	result := &StepResult{
		RequestedTurns: turns,
		StartTurn:      sess.Engine.GetTurn(),
		Events:         make([]GameEvent, 0),
	}

	// Limit turns to prevent abuse
	if turns > engine.MaxStepTurns {
		result.Truncated = true
		result.Limit = engine.MaxStepTurns
		turns = engine.MaxStepTurns
	}
	result.Reports = make([]*engine.TurnReport, 0, turns)

	for i := 0; i < turns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := sess.Engine.Tick()
		if err != nil {
			return nil, err
		}
		result.TurnsExecuted++
		result.Reports = append(result.Reports, report)
		result.Events = append(result.Events, eventsFromReport(report)...)
		state := sess.Engine.Snapshot()
		s.notify(sess.ID, KindTurn, report, state)

		if report.GameOver {
			result.StoppedReason = "game_over"
			if state.BoardFull {
				result.StoppedReason = "board_full"
			}
			break
		}
	}

	result.GameState = sess.Engine.Snapshot()
	result.EndTurn = result.GameState.Turn
	result.GameOver = result.GameState.GameOver
	return result, nil
}

// Reset starts a new episode. A running session keeps running.
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", sessionID, err)
	}
	s.notify(sess.ID, KindReset, nil, state)
	return state, nil
}

// StartRun ticks the session on its own goroutine until it is stopped,
// deleted or the game ends
func (s *gameServiceImpl) StartRun(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Engine.IsGameOver() {
		return nil, engine.ErrGameOver
	}

	id := sess.ID
	onTurn := func(report *engine.TurnReport, state *engine.State) {
		s.notify(id, KindTurn, report, state)
		if report.GameOver {
			log.Printf("[RUN] session %s game over at turn %d", id, report.Turn)
		}
	}
	// The runner outlives the request that started it
	if err := sess.StartRunner(context.Background(), onTurn); err != nil {
		return nil, fmt.Errorf("run %s: %w", sessionID, err)
	}
	return s.sessionInfo(sess, ""), nil
}

// StopRun stops the session's runner
func (s *gameServiceImpl) StopRun(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.StopRunner(); err != nil {
		return nil, fmt.Errorf("stop %s: %w", sessionID, err)
	}
	return s.sessionInfo(sess, ""), nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// DescribeTile reports a single tile of a session's board
func (s *gameServiceImpl) DescribeTile(ctx context.Context, sessionID string, x, y int) (*engine.TileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	info, err := sess.Engine.DescribeTile(x, y)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// StopAll stops every running session, used on shutdown
func StopAll(sessions SessionManager) int {
	stopped := 0
	for _, sess := range sessions.List() {
		if err := sess.StopRunner(); err == nil {
			stopped++
		} else if !errors.Is(err, ErrSessionNotRunning) {
			log.Printf("[RUN] stop %s: %v", sess.ID, err)
		}
	}
	return stopped
}
