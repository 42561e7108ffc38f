package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
	"github.com/wricardo/mcp-training/snakegrid/game/runner"
)

var (
	ErrSessionRunning    = errors.New("session is running")
	ErrSessionNotRunning = errors.New("session is not running")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Steer(ctx context.Context, sessionID string, req SteerRequest) (*SteerResult, error)
	Step(ctx context.Context, sessionID string, turns int) (*StepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.State, error)
	StartRun(ctx context.Context, sessionID string) (*SessionInfo, error)
	StopRun(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.State, error)
	DescribeTile(ctx context.Context, sessionID string, x, y int) (*engine.TileInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Observers
	Subscribe(observer TurnObserver)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Config         *engine.GameConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu     sync.Mutex
	runner *runner.Runner
}

// StartRunner begins ticking the session's engine at its configured turn
// duration. onTurn runs on the runner goroutine after every turn.
func (s *Session) StartRunner(ctx context.Context, onTurn runner.Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner != nil && s.runner.Running() {
		return ErrSessionRunning
	}
	s.runner = runner.New(s.Engine, s.Config.TurnDuration(), onTurn)
	return s.runner.Start(ctx)
}

// StopRunner stops the runner and waits for the in-flight turn to finish
func (s *Session) StopRunner() error {
	s.mu.Lock()
	r := s.runner
	s.mu.Unlock()

	if r == nil {
		return ErrSessionNotRunning
	}
	if err := r.Stop(); err != nil {
		return ErrSessionNotRunning
	}
	return nil
}

// Running reports whether the runner is ticking this session
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner != nil && s.runner.Running()
}
