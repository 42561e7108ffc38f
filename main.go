// Command snakegrid runs the multi-snake grid game.
//
// Subcommands:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "play" – plays a board locally in the terminal
//  4. "replay" – prints turn summaries from a recorded JSONL log
//  5. "validate" – checks every board configuration in a directory
//  6. "scores" – lists the best finished episodes from the episode index
//
// Flags control host/port, config directory, turn recording, debug logging,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/snakegrid/api"
	"github.com/wricardo/mcp-training/snakegrid/game/autopilot"
	"github.com/wricardo/mcp-training/snakegrid/game/config"
	"github.com/wricardo/mcp-training/snakegrid/game/engine"
	"github.com/wricardo/mcp-training/snakegrid/game/service"
	"github.com/wricardo/mcp-training/snakegrid/game/session"
	"github.com/wricardo/mcp-training/snakegrid/recorder"
	"github.com/wricardo/mcp-training/snakegrid/transport/mcp"
	"github.com/wricardo/mcp-training/snakegrid/transport/websocket"
	"github.com/wricardo/mcp-training/snakegrid/tui"
	"github.com/wricardo/mcp-training/snakegrid/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Snakegrid Server"
)

const (
	sessionMaxAge   = 24 * time.Hour
	cleanupInterval = 1 * time.Hour
)

// main loads .env, then hands off to the command tree
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Root flags are inherited by every subcommand.
func newApp() *cli.Command {
	serve := &cli.Command{
		Name:   "serve",
		Usage:  "run HTTP server with API, WebSocket, and MCP endpoint",
		Flags:  ngrokFlags(),
		Action: runServe,
	}

	return &cli.Command{
		Name:    "snakegrid",
		Usage:   "multi-snake grid game server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing game configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "record-dir",
				Usage:   "write turn logs under this directory (disabled when empty)",
				Sources: cli.EnvVars("RECORD_DIR"),
			},
			&cli.StringFlag{
				Name:    "record-format",
				Value:   string(recorder.FormatJSONL),
				Usage:   "turn log format: jsonl or parquet",
				Sources: cli.EnvVars("RECORD_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "index-db",
				Usage:   "SQLite file indexing finished episodes (disabled when empty)",
				Sources: cli.EnvVars("INDEX_DB"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		// No subcommand means serve
		Action: runServe,
		Commands: []*cli.Command{
			serve,
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run MCP stdio server with internal HTTP server",
				Action:  runMCP,
			},
			{
				Name:      "play",
				Usage:     "play a board in the terminal",
				ArgsUsage: "[config]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "autopilot",
						Usage: "let the autopilot drive snake 0 as well",
					},
				},
				Action: runPlay,
			},
			{
				Name:      "replay",
				Usage:     "print turn summaries from a recorded JSONL log",
				ArgsUsage: "<file.jsonl.zst>",
				Action:    runReplay,
			},
			{
				Name:      "validate",
				Usage:     "validate every configuration in a directory",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
			{
				Name:  "scores",
				Usage: "list the best finished episodes from the episode index",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "only episodes played on this board",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 10,
						Usage: "number of episodes to list",
					},
				},
				Action: runScores,
			},
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

// serviceOptions selects the config dir and the optional turn outputs
type serviceOptions struct {
	ConfigDir    string
	RecordDir    string
	RecordFormat string
	IndexDB      string
}

// services bundles the wired managers so commands can shut them down
type services struct {
	game     service.GameService
	sessions *session.Manager
	configs  *config.Manager
	recorder *recorder.Recorder
	index    *recorder.SQLiteIndex
}

// initializeServices wires session/config managers, the game service and
// the optional turn recorder and episode index
func initializeServices(opts serviceOptions) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager(engine.WithPilot(autopilot.Choose))
	gameService := service.NewGameService(sessionManager, configManager)

	svc := &services{
		game:     gameService,
		sessions: sessionManager,
		configs:  configManager,
	}

	if opts.RecordDir != "" {
		rec, err := newRecorder(opts.RecordDir, opts.RecordFormat)
		if err != nil {
			return nil, err
		}
		gameService.Subscribe(rec.Observe)
		svc.recorder = rec
		log.Printf("Recording turns to %s (%s)", opts.RecordDir, opts.RecordFormat)
	}

	if opts.IndexDB != "" {
		idx, err := recorder.OpenSQLite(opts.IndexDB)
		if err != nil {
			svc.shutdown()
			return nil, fmt.Errorf("failed to open episode index: %w", err)
		}
		gameService.Subscribe(idx.Observe)
		svc.index = idx
		log.Printf("Indexing finished episodes in %s", opts.IndexDB)
	}

	return svc, nil
}

func newRecorder(dir, format string) (*recorder.Recorder, error) {
	f, err := recorder.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	rec, err := recorder.New(dir, f)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	return rec, nil
}

// shutdown stops every runner and flushes the turn logs
func (s *services) shutdown() {
	if stopped := service.StopAll(s.sessions); stopped > 0 {
		log.Printf("Stopped %d running sessions", stopped)
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			log.Printf("Recorder close error: %v", err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			log.Printf("Episode index close error: %v", err)
		}
	}
}

func optionsFromCommand(cmd *cli.Command) serviceOptions {
	return serviceOptions{
		ConfigDir:    cmd.String("config-dir"),
		RecordDir:    cmd.String("record-dir"),
		RecordFormat: cmd.String("record-format"),
		IndexDB:      cmd.String("index-db"),
	}
}

func servicesFromCommand(cmd *cli.Command) (*services, error) {
	return initializeServices(optionsFromCommand(cmd))
}

// newMainRouter combines the API server and the /mcp endpoint
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	log.Printf("Starting %s v%s (mode: serve)", AppName, Version)

	svc, err := servicesFromCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go sessionCleanupRoutine(ctx, svc.sessions)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	apiServer := api.NewServer(svc.game, hub)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), int(cmd.Int("port")))
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	serveErr := make(chan error, 1)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	var runErr error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case runErr = <-serveErr:
		log.Printf("HTTP server failed: %v", runErr)
	case <-ctx.Done():
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	svc.shutdown()

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := manager.CleanupExpiredSessions(sessionMaxAge)
			if removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		}
	}
}

// runMCP runs an MCP stdio server.
// It tries to reuse an external API at the configured host/port; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), int(cmd.Int("port")))
	log.Printf("Checking for external API server at %s...", externalURL)

	baseURL := externalURL
	if !apiAvailable(externalURL) {
		log.Printf("No external API server found, starting internal HTTP server")

		svc, err := servicesFromCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svc.shutdown()

		internalURL, closeServer, err := startInternalServer(ctx, svc.game)
		if err != nil {
			return err
		}
		defer closeServer()
		baseURL = internalURL
		log.Println("MCP stdio server ready (using internal HTTP server)")
	} else {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether an API server answers at baseURL
func apiAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalServer serves the API on a random loopback port and returns its base URL
func startInternalServer(ctx context.Context, gameService service.GameService) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}
	internalAddr := listener.Addr().String()
	log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

	ctx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	closeServer := func() {
		cancel()
		httpServer.Close()
	}
	return "http://" + internalAddr, closeServer, nil
}

// runPlay plays one board in the terminal. The config name is looked up in
// the config dir; no name means the default board.
func runPlay(ctx context.Context, cmd *cli.Command) error {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	cfg := configManager.GetDefault()
	if name := cmd.Args().First(); name != "" {
		if cfg, err = configManager.LoadConfig(name); err != nil {
			return fmt.Errorf("load config %s: %w", name, err)
		}
	}

	// Configs are cached by the manager; play on a copy
	playCfg := *cfg
	playCfg.Autopilot = append([]int(nil), cfg.Autopilot...)
	if cmd.Bool("autopilot") && !playCfg.IsAutopilot(0) {
		playCfg.Autopilot = append(playCfg.Autopilot, 0)
	}

	eng, err := engine.NewEngine(&playCfg, engine.WithPilot(autopilot.Choose))
	if err != nil {
		return err
	}

	sessionID := fmt.Sprintf("local-%d", time.Now().Unix())
	var observers []service.TurnObserver
	if dir := cmd.String("record-dir"); dir != "" {
		rec, err := newRecorder(dir, cmd.String("record-format"))
		if err != nil {
			return err
		}
		defer rec.Close()
		observers = append(observers, rec.Observe)
	}
	if path := cmd.String("index-db"); path != "" {
		idx, err := recorder.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer idx.Close()
		observers = append(observers, idx.Observe)
	}

	var observer tui.Observer
	if len(observers) > 0 {
		observer = func(kind string, report *engine.TurnReport, state *engine.State) {
			for _, o := range observers {
				o(sessionID, kind, report, state)
			}
		}
	}

	model := tui.New(eng, 0, playCfg.TurnDuration(), observer)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}

	if m, ok := final.(tui.Model); ok {
		st := m.State()
		fmt.Printf("Final: turn %d, episodes %d, best score %d\n", st.Turn, st.Episodes, st.BestScore)
	}
	return nil
}

// runReplay prints one line per recorded turn
func runReplay(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("replay needs a .jsonl.zst file")
	}

	entries, err := recorder.ReadJSONL(path)
	if err != nil {
		return err
	}
	printReplay(os.Stdout, entries)
	return nil
}

// printReplay writes a summary line per entry plus one line per death
func printReplay(w io.Writer, entries []recorder.TurnEntry) {
	for _, e := range entries {
		alive, food := 0, 0
		if e.State != nil {
			alive = e.State.AliveCount
			food = len(e.State.FoodPositions)
		}

		if e.Report == nil {
			fmt.Fprintf(w, "episode %d turn %d [%s] alive=%d food=%d\n", e.Episode, e.Turn, e.Kind, alive, food)
			continue
		}

		fmt.Fprintf(w, "episode %d turn %d alive=%d food=%d", e.Episode, e.Turn, alive, food)
		if len(e.Report.FoodSpawned) > 0 {
			fmt.Fprintf(w, " spawned=%d", len(e.Report.FoodSpawned))
		}
		switch {
		case e.Report.BoardFull:
			fmt.Fprint(w, " BOARD FULL")
		case e.Report.GameOver:
			fmt.Fprint(w, " GAME OVER")
		}
		fmt.Fprintln(w)

		for _, d := range e.Report.Deaths() {
			fmt.Fprintf(w, "  snake %d died at (%d,%d): %s\n", d.SnakeID, d.Position.X, d.Position.Y, d.Cause)
		}
	}
	fmt.Fprintf(w, "%d entries\n", len(entries))
}

// runValidate checks every config file and fails when any is invalid
func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("config-dir")
	}

	results, err := validate.ValidateDir(dir)
	if err != nil {
		return err
	}
	if !validate.Report(os.Stdout, results) {
		return cli.Exit("", 1)
	}
	return nil
}

// runScores prints the best indexed episodes
func runScores(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("index-db")
	if path == "" {
		return fmt.Errorf("scores needs --index-db or INDEX_DB")
	}

	idx, err := recorder.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	episodes, err := idx.TopEpisodes(ctx, cmd.String("config"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	printScores(os.Stdout, episodes)
	return nil
}

func printScores(w io.Writer, episodes []recorder.EpisodeSummary) {
	if len(episodes) == 0 {
		fmt.Fprintln(w, "No finished episodes indexed")
		return
	}
	fmt.Fprintf(w, "%-4s %-12s %-10s %7s %6s %6s %9s  %s\n", "#", "session", "config", "episode", "score", "length", "survivors", "turns")
	for i, e := range episodes {
		turns := fmt.Sprintf("%d", e.Turns)
		if e.BoardFull {
			turns += " (board full)"
		}
		fmt.Fprintf(w, "%-4d %-12s %-10s %7d %6d %6d %4d/%-4d  %s\n",
			i+1, e.SessionID, e.ConfigName, e.Episode, e.BestScore, e.BestLength, e.Survivors, e.Snakes, turns)
	}
}
