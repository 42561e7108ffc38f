package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// laneEngine runs one snake from (2,2) straight up a 6x6 board; it hits the
// top wall on turn 4
func laneEngine(t *testing.T) *engine.GameEngine {
	t.Helper()
	cfg := &engine.GameConfig{
		Name:        "lane",
		Width:       6,
		Height:      6,
		SnakeCount:  1,
		StartLength: 3,
		FoodCount:   1,
		Seed:        5,
		Spawns:      []engine.SnakeSpawn{{X: 2, Y: 2, Direction: "up"}},
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func playOut(t *testing.T, rec *Recorder, sessionID string, eng *engine.GameEngine) int {
	t.Helper()
	turns := 0
	for !eng.IsGameOver() {
		report, err := eng.Tick()
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if err := rec.Record(sessionID, "turn", report, eng.Snapshot()); err != nil {
			t.Fatalf("Record: %v", err)
		}
		turns++
	}
	return turns
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jsonl", FormatJSONL, false},
		{"PARQUET", FormatParquet, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}

	if _, err := New(t.TempDir(), "xml"); err == nil {
		t.Error("Expected New to reject an unknown format")
	}
}

func TestRecorder_JSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec, err := New(dir, FormatJSONL)
	if err != nil {
		t.Fatal(err)
	}

	eng := laneEngine(t)
	turns := playOut(t, rec, "ab12", eng)
	if turns != 4 {
		t.Fatalf("Expected 4 turns, got %d", turns)
	}

	// Game over finalized the log; Close has nothing left to flush
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "ab12", "turns-*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("Expected one log file, got %v", files)
	}

	entries, err := ReadJSONL(files[0])
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Turn != i+1 || e.SessionID != "ab12" || e.Kind != "turn" {
			t.Errorf("Entry %d: unexpected %+v", i, e)
		}
	}

	last := entries[3]
	if last.Report == nil || !last.Report.GameOver {
		t.Fatal("Expected the last entry to be game over")
	}
	if deaths := last.Report.Deaths(); len(deaths) != 1 || deaths[0].Cause != engine.CauseWall {
		t.Errorf("Expected a wall death, got %+v", deaths)
	}
	if last.State.SnakeByID(0) == nil {
		t.Error("Expected snake 0 in the recorded state")
	}
}

func TestRecorder_NewEpisodeAppendsFrame(t *testing.T) {
	dir := t.TempDir()
	rec, err := New(dir, FormatJSONL)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	eng := laneEngine(t)
	playOut(t, rec, "ab12", eng)

	state, err := eng.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.Record("ab12", "reset", nil, state); err != nil {
		t.Fatal(err)
	}
	playOut(t, rec, "ab12", eng)
	rec.Close()

	entries, err := ReadJSONL(filepath.Join(dir, "ab12", "turns-2026-03-01-10.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}

	if len(entries) != 9 {
		t.Fatalf("Expected 4 + 1 + 4 entries, got %d", len(entries))
	}
	if entries[4].Kind != "reset" || entries[4].Episode != 1 || entries[4].Report != nil {
		t.Errorf("Expected reset entry, got %+v", entries[4])
	}
	if entries[8].Episode != 1 || !entries[8].RecordedAt.Equal(fixed) {
		t.Errorf("Unexpected final entry %+v", entries[8])
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "turns")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(TurnEntry{Turn: 1}); err != nil {
		t.Fatal(err)
	}
	first := w.Path()

	now = now.Add(2 * time.Minute)
	if err := w.Write(TurnEntry{Turn: 2}); err != nil {
		t.Fatal(err)
	}
	second := w.Path()
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if filepath.Base(first) != "turns-2026-03-01-10.jsonl.zst" || filepath.Base(second) != "turns-2026-03-01-11.jsonl.zst" {
		t.Fatalf("Unexpected paths %s %s", first, second)
	}
	if w.Path() != "" {
		t.Error("Expected no path after Close")
	}

	for i, path := range []string{first, second} {
		entries, err := ReadJSONL(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Turn != i+1 {
			t.Errorf("%s: unexpected entries %+v", path, entries)
		}
	}
}

func TestRecorder_Parquet(t *testing.T) {
	dir := t.TempDir()
	rec, err := New(dir, FormatParquet)
	if err != nil {
		t.Fatal(err)
	}

	eng := laneEngine(t)
	playOut(t, rec, "cd34", eng)

	files, _ := filepath.Glob(filepath.Join(dir, "cd34", "turns-*.parquet"))
	if len(files) != 1 {
		t.Fatalf("Expected game over to finalize one parquet file, got %v", files)
	}

	rows, err := ReadParquet(files[0])
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.SessionID != "cd34" || first.ConfigName != "lane" || first.Turn != 1 || first.Width != 6 {
		t.Errorf("Unexpected first row %+v", first)
	}
	if len(first.Snakes) != 1 || first.Snakes[0].BodyY[0] != 3 || first.Snakes[0].Direction != "up" {
		t.Errorf("Expected head at y=3 heading up, got %+v", first.Snakes)
	}
	if len(first.FoodX) != len(first.FoodY) || len(first.FoodX) == 0 {
		t.Errorf("Expected food columns, got %v %v", first.FoodX, first.FoodY)
	}

	last := rows[3]
	if !last.GameOver || last.Snakes[0].Alive || last.Snakes[0].Cause != engine.CauseWall {
		t.Errorf("Expected wall death on the last row, got %+v", last)
	}

	// Nothing is open any more, so Close leaves no tmp files
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	tmp, _ := filepath.Glob(filepath.Join(dir, "cd34", "tmp", "*"))
	if len(tmp) != 0 {
		t.Errorf("Expected no tmp files, got %v", tmp)
	}
}

func TestParquetWriter_EmptyLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	pw, err := NewParquetWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := pw.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 0 {
		t.Errorf("Expected no output, got %v", files)
	}
	if err := pw.WriteTurn(TurnEntry{}); err == nil {
		t.Error("Expected write after Close to fail")
	}
}

func TestRecorder_CloseSessionAndClose(t *testing.T) {
	dir := t.TempDir()
	rec, err := New(dir, FormatParquet)
	if err != nil {
		t.Fatal(err)
	}

	eng := laneEngine(t)
	report, _ := eng.Tick()
	if err := rec.Record("ef56", "turn", report, eng.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if err := rec.CloseSession("ef56"); err != nil {
		t.Fatal(err)
	}
	if err := rec.CloseSession("missing"); err != nil {
		t.Errorf("Closing an unknown session should be a no-op, got %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "ef56", "*.parquet"))
	if len(files) != 1 {
		t.Fatalf("Expected CloseSession to finalize the file, got %v", files)
	}

	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Record("ef56", "turn", report, eng.Snapshot()); err == nil {
		t.Error("Expected Record after Close to fail")
	}
}
