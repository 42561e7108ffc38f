package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// EpisodeSummary is one finished episode in the index
type EpisodeSummary struct {
	SessionID  string    `json:"session_id"`
	Episode    int       `json:"episode"`
	ConfigName string    `json:"config_name"`
	Turns      int       `json:"turns"`
	Snakes     int       `json:"snakes"`
	Survivors  int       `json:"survivors"`
	BestScore  int       `json:"best_score"`
	BestLength int       `json:"best_length"`
	BoardFull  bool      `json:"board_full"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SummarizeEpisode condenses a game-over state
func SummarizeEpisode(sessionID string, state *engine.State) EpisodeSummary {
	sum := EpisodeSummary{
		SessionID:  sessionID,
		Episode:    state.Episodes,
		ConfigName: state.ConfigName,
		Turns:      state.Turn,
		Snakes:     len(state.Snakes),
		Survivors:  state.AliveCount,
		BoardFull:  state.BoardFull,
		RecordedAt: time.Now().UTC(),
	}
	for _, s := range state.Snakes {
		if s.Score > sum.BestScore {
			sum.BestScore = s.Score
		}
		if s.Length > sum.BestLength {
			sum.BestLength = s.Length
		}
	}
	return sum
}

// SQLiteIndex keeps one row per finished episode. Writes are queued to a
// single writer goroutine and dropped when the queue is full; the turn logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan EpisodeSummary
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends against closing ch
	mu     sync.RWMutex
	closed atomic.Bool
}

// OpenSQLite opens or creates the index at path
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initIndex(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan EpisodeSummary, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initIndex(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS episodes (
			session_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			config_name TEXT NOT NULL,
			turns INTEGER NOT NULL,
			snakes INTEGER NOT NULL,
			survivors INTEGER NOT NULL,
			best_score INTEGER NOT NULL,
			best_length INTEGER NOT NULL,
			board_full INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, episode)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_score ON episodes(best_score DESC, turns);`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_config ON episodes(config_name, best_score DESC);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Observe matches the service's turn observer; game-over turns are indexed
func (s *SQLiteIndex) Observe(sessionID, kind string, report *engine.TurnReport, state *engine.State) {
	if report == nil || !report.GameOver || state == nil {
		return
	}
	s.RecordEpisode(SummarizeEpisode(sessionID, state))
}

// RecordEpisode queues a summary for the writer
func (s *SQLiteIndex) RecordEpisode(sum EpisodeSummary) {
	if s == nil || s.closed.Load() {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- sum:
	default:
		log.Printf("[INDEX] queue full, dropped %s episode %d", sum.SessionID, sum.Episode)
	}
}

// Close drains the queue and closes the database
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO episodes(session_id,episode,config_name,turns,snakes,survivors,best_score,best_length,board_full,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		log.Printf("[INDEX] prepare: %v", err)
		for range s.ch {
		}
		return
	}
	defer insert.Close()

	for sum := range s.ch {
		full := 0
		if sum.BoardFull {
			full = 1
		}
		if _, err := insert.Exec(
			sum.SessionID,
			sum.Episode,
			sum.ConfigName,
			sum.Turns,
			sum.Snakes,
			sum.Survivors,
			sum.BestScore,
			sum.BestLength,
			full,
			sum.RecordedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			log.Printf("[INDEX] insert %s episode %d: %v", sum.SessionID, sum.Episode, err)
		}
	}
}

// TopEpisodes returns the best episodes by score, then fewest turns. An
// empty configName matches every board.
func (s *SQLiteIndex) TopEpisodes(ctx context.Context, configName string, limit int) ([]EpisodeSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT session_id,episode,config_name,turns,snakes,survivors,best_score,best_length,board_full,recorded_at
		FROM episodes WHERE (? = '' OR config_name = ?)
		ORDER BY best_score DESC, turns ASC, recorded_at ASC LIMIT ?`, configName, configName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var (
			sum        EpisodeSummary
			full       int
			recordedAt string
		)
		if err := rows.Scan(&sum.SessionID, &sum.Episode, &sum.ConfigName, &sum.Turns, &sum.Snakes,
			&sum.Survivors, &sum.BestScore, &sum.BestLength, &full, &recordedAt); err != nil {
			return nil, err
		}
		sum.BoardFull = full != 0
		sum.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}
