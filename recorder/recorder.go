package recorder

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// Format selects the on-disk turn log encoding
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// ParseFormat accepts "jsonl" or "parquet", case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSONL:
		return FormatJSONL, nil
	case FormatParquet:
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unknown record format %q (want jsonl or parquet)", s)
}

// TurnEntry is one recorded turn or reset
type TurnEntry struct {
	SessionID  string             `json:"session_id"`
	Kind       string             `json:"kind"`
	RecordedAt time.Time          `json:"recorded_at"`
	Episode    int                `json:"episode"`
	Turn       int                `json:"turn"`
	Report     *engine.TurnReport `json:"report,omitempty"`
	State      *engine.State      `json:"state"`
}

type sink interface {
	WriteTurn(entry TurnEntry) error
	Close() error
}

// Recorder keeps one log per session. Observe matches the service's turn
// observer signature so it can be subscribed directly.
type Recorder struct {
	dir    string
	format Format
	now    func() time.Time

	mu     sync.Mutex
	sinks  map[string]sink
	closed bool
}

// New creates a recorder writing under dir
func New(dir string, format Format) (*Recorder, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	return &Recorder{
		dir:    dir,
		format: format,
		now:    time.Now,
		sinks:  make(map[string]sink),
	}, nil
}

// Dir returns the root directory of the logs
func (r *Recorder) Dir() string { return r.dir }

// Observe records a turn. A game-over turn closes the session's log so the
// file is complete on disk; the next turn opens a new one.
func (r *Recorder) Observe(sessionID, kind string, report *engine.TurnReport, state *engine.State) {
	if err := r.Record(sessionID, kind, report, state); err != nil {
		log.Printf("[RECORD] session %s: %v", sessionID, err)
	}
}

// Record is Observe with the error returned
func (r *Recorder) Record(sessionID, kind string, report *engine.TurnReport, state *engine.State) error {
	entry := TurnEntry{
		SessionID:  sessionID,
		Kind:       kind,
		RecordedAt: r.now().UTC(),
		Report:     report,
		State:      state,
	}
	if state != nil {
		entry.Episode = state.Episodes
		entry.Turn = state.Turn
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("recorder is closed")
	}

	s, err := r.sinkLocked(sessionID)
	if err != nil {
		return err
	}
	if err := s.WriteTurn(entry); err != nil {
		return fmt.Errorf("write turn %d: %w", entry.Turn, err)
	}

	if report != nil && report.GameOver {
		delete(r.sinks, sessionID)
		return s.Close()
	}
	return nil
}

func (r *Recorder) sinkLocked(sessionID string) (sink, error) {
	if s, ok := r.sinks[sessionID]; ok {
		return s, nil
	}

	dir := filepath.Join(r.dir, sessionID)
	var s sink
	switch r.format {
	case FormatParquet:
		pw, err := NewParquetWriter(dir)
		if err != nil {
			return nil, err
		}
		s = pw
	default:
		js := newJSONLSink(dir)
		js.w.now = r.now
		s = js
	}
	r.sinks[sessionID] = s
	return s, nil
}

// CloseSession finalizes one session's log, if it has one open
func (r *Recorder) CloseSession(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sinks[sessionID]
	if !ok {
		return nil
	}
	delete(r.sinks, sessionID)
	return s.Close()
}

// Close finalizes every open log. Later turns are rejected.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		delete(r.sinks, id)
	}
	r.closed = true
	return errors.Join(errs...)
}
