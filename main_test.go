package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
	"github.com/wricardo/mcp-training/snakegrid/recorder"
	"github.com/wricardo/mcp-training/snakegrid/transport/mcp"
)

const laneConfig = `{
	"name": "lane",
	"width": 6,
	"height": 6,
	"snake_count": 1,
	"start_length": 3,
	"food_count": 1,
	"seed": 3,
	"spawns": [{"x": 2, "y": 2, "direction": "up"}]
}`

func configDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lane.json"), []byte(laneConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Snakegrid Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()

	want := map[string]bool{"serve": false, "mcp": false, "play": false, "replay": false, "validate": false}
	for _, c := range app.Commands {
		if _, ok := want[c.Name]; ok {
			want[c.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected subcommand %s", name)
		}
	}
	if app.Action == nil {
		t.Error("Expected root to default to serve")
	}

	flags := map[string]bool{}
	for _, f := range app.Flags {
		for _, n := range f.Names() {
			flags[n] = true
		}
	}
	for _, n := range []string{"host", "port", "config-dir", "record-dir", "record-format", "debug"} {
		if !flags[n] {
			t.Errorf("Expected root flag %s", n)
		}
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := initializeServices(serviceOptions{ConfigDir: configDir(t), RecordFormat: "jsonl"})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if svc.game == nil || svc.recorder != nil {
		t.Fatalf("Unexpected services %+v", svc)
	}

	info, err := svc.game.CreateSession(context.Background(), "lane")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.ConfigName != "lane" {
		t.Errorf("Expected lane session, got %+v", info)
	}
	svc.shutdown()
}

func TestInitializeServices_Errors(t *testing.T) {
	if _, err := initializeServices(serviceOptions{ConfigDir: "/non/existent/path"}); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
	if _, err := initializeServices(serviceOptions{ConfigDir: configDir(t), RecordDir: t.TempDir(), RecordFormat: "xml"}); err == nil {
		t.Error("Expected error for unknown record format")
	}
}

func TestInitializeServices_RecordsTurns(t *testing.T) {
	recordDir := t.TempDir()
	indexDB := filepath.Join(t.TempDir(), "episodes.db")
	svc, err := initializeServices(serviceOptions{
		ConfigDir:    configDir(t),
		RecordDir:    recordDir,
		RecordFormat: "jsonl",
		IndexDB:      indexDB,
	})
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx := context.Background()
	info, err := svc.game.CreateSession(ctx, "lane")
	if err != nil {
		t.Fatal(err)
	}
	result, err := svc.game.Step(ctx, info.ID, 10)
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !result.GameState.GameOver {
		t.Fatalf("Expected the lane to end, got %+v", result.GameState)
	}
	svc.shutdown()

	files, _ := filepath.Glob(filepath.Join(recordDir, info.ID, "*.jsonl.zst"))
	if len(files) != 1 {
		t.Fatalf("Expected one turn log, got %v", files)
	}
	entries, err := recorder.ReadJSONL(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 recorded turns, got %d", len(entries))
	}

	var buf bytes.Buffer
	printReplay(&buf, entries)
	out := buf.String()
	for _, want := range []string{"episode 0 turn 1 alive=1", "GAME OVER", "snake 0 died at (2,5): wall", "4 entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in replay:\n%s", want, out)
		}
	}

	idx, err := recorder.OpenSQLite(indexDB)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	episodes, err := idx.TopEpisodes(ctx, "lane", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 1 || episodes[0].SessionID != info.ID || episodes[0].Turns != 4 {
		t.Fatalf("Expected the finished episode in the index, got %+v", episodes)
	}

	buf.Reset()
	printScores(&buf, episodes)
	if !strings.Contains(buf.String(), info.ID) || !strings.Contains(buf.String(), "lane") {
		t.Errorf("Unexpected scores output:\n%s", buf.String())
	}
}

func TestPrintScores_Empty(t *testing.T) {
	var buf bytes.Buffer
	printScores(&buf, nil)
	if !strings.Contains(buf.String(), "No finished episodes indexed") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}

func TestPrintReplay_Reset(t *testing.T) {
	var buf bytes.Buffer
	printReplay(&buf, []recorder.TurnEntry{
		{Kind: "reset", Episode: 2, State: &engine.State{AliveCount: 1, FoodPositions: []engine.Position{{X: 1, Y: 1}}}},
	})
	if !strings.Contains(buf.String(), "episode 2 turn 0 [reset] alive=1 food=1") {
		t.Errorf("Unexpected replay output:\n%s", buf.String())
	}
}

func TestMainRouter(t *testing.T) {
	svc, err := initializeServices(serviceOptions{ConfigDir: configDir(t), RecordFormat: "jsonl"})
	if err != nil {
		t.Fatal(err)
	}
	defer svc.shutdown()

	baseURL, closeServer, err := startInternalServer(context.Background(), svc.game)
	if err != nil {
		t.Fatalf("startInternalServer failed: %v", err)
	}
	if !apiAvailable(baseURL) {
		t.Errorf("Expected internal API at %s to answer", baseURL)
	}

	router := newMainRouter(http.NotFoundHandler(), mcp.NewClient(baseURL))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", rec.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "snakegrid") {
		t.Errorf("Expected initialize result, got %d %s", rec.Code, rec.Body.String())
	}

	closeServer()
	if apiAvailable(baseURL) {
		t.Error("Expected closed API to be unavailable")
	}
}

func TestValidateCommand(t *testing.T) {
	if err := newApp().Run(context.Background(), []string{"snakegrid", "validate", configDir(t)}); err != nil {
		t.Errorf("Expected valid configs to pass, got %v", err)
	}
}
