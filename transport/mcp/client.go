package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/snakegrid/game/engine"
	"github.com/wricardo/mcp-training/snakegrid/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"snakegrid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`snakegrid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Keep your snake alive and eat food (*). Each food grows the snake by one and scores a point.

AVAILABLE TOOLS:
- create_session: Create a new game session
- get_session / list_sessions: Inspect sessions
- game_state: Board, snakes and food
- steer: Latch a heading for the next turn (absolute direction or relative turn)
- step: Advance a stopped session by N turns
- run: Start or stop real-time ticking
- reset_game: Start a new episode
- describe_tile: Inspect one tile by coordinate
- list_configs: List board configurations
- game_instructions: Rules and coordinate system`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Config ID to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, snakes and food",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "steer",
		Description: "Latch a heading for a snake. It takes effect on the next turn. Give either direction or turn, not both. Reversing onto the neck is rejected.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"snake_id": map[string]interface{}{
					"type":        "integer",
					"description": "Snake to steer (default 0)",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Absolute heading",
				},
				"turn": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"left", "straight", "right"},
					"description": "Heading relative to the current one",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you are steering this way",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSteer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: fmt.Sprintf("Advance a stopped session by up to %d turns, stopping early at game over", engine.MaxStepTurns),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"turns": map[string]interface{}{
					"type":        "integer",
					"description": "Number of turns (default 1)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run",
		Description: "Start or stop real-time ticking at the config's turn duration",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"action": map[string]interface{}{
					"type": "string",
					"enum": []string{"start", "stop"},
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new episode with fresh snakes and food",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game rules and the coordinate system",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_tile",
		Description: "Describe a single tile: empty, food or snake, and which snake occupies it. (0,0) is the bottom-left corner.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 0 at the left edge",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 0 at the bottom edge",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeTile)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, name string, fallback int) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return fallback, false
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configName, _ := args["config_name"].(string)

	body := map[string]string{}
	if configName != "" {
		body["config_id"] = configName
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "stopped"
		if s.Running {
			status = "running"
		}
		result += fmt.Sprintf("- %s (Config: %s, %s, Created: %s)\n",
			s.ID, s.ConfigName, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var state engine.State
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSteer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	snakeID, _ := intArg(args, "snake_id", 0)
	direction, _ := args["direction"].(string)
	turn, _ := args["turn"].(string)

	// intent is not forwarded; it only serves the caller's reasoning
	body := service.SteerRequest{SnakeID: snakeID, Direction: direction, Turn: turn}

	var result service.SteerResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/steer", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSteerResult(&result)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	turns, _ := intArg(args, "turns", 1)

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/step", sessionID), map[string]int{"turns": turns}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	action, _ := args["action"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/run", sessionID), map[string]string{"action": action}, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if session.Running {
		return mcp.NewToolResultText(fmt.Sprintf("Session %s is running. Use steer between turns and run with action=stop to pause.", session.ID)), nil
	}
	result := fmt.Sprintf("Session %s stopped.", session.ID)
	if session.GameState != nil {
		result += "\n\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := request.GetArguments()["session_id"].(string)

	var response struct {
		Message string        `json:"message"`
		State   *engine.State `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/reset", sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		wrap := ""
		if config.Wrap {
			wrap = ", wrapping edges"
		}
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Board: %dx%d, Snakes: %d%s\n\n",
			config.ConfigID, config.Name, config.Description, config.Width, config.Height, config.SnakeCount, wrap)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `snakegrid - Instructions

OBJECTIVE:
Keep your snake alive as long as possible while eating food. Every food eaten
grows the snake by one segment and adds one point.

COORDINATES:
• (0,0) is the bottom-left corner. x grows to the right, y grows upward.
• "up" adds 1 to y, "down" subtracts 1.
• The game_state grid is printed top row first, so the last printed row is y=0.

GRID LEGEND:
• @ - Snake head
• o - Snake body
• * - Food
• . - Empty

TURNS:
1. Every snake commits the heading latched with steer (or keeps going straight).
2. A head that leaves the board (unless edges wrap) or enters a snake body dies.
   Moving into your own tail is safe: the tail moves out of the way.
3. Two heads entering the same tile: the longest snake survives, equal lengths all die.
4. Food eaten this turn is replaced somewhere empty.

STEERING:
• steer with direction=up|down|left|right, or turn=left|straight|right.
• Reversing straight back onto your own neck is rejected.
• The latched heading only applies on the next turn; steer again before each step.

PLAYING:
• step advances a stopped session by N turns (max 100 per call) and reports
  deaths, food and game over.
• run ticks on its own at the config's turn duration. step is rejected while running.
• describe_tile tells you exactly what is on a coordinate.
• The game ends when no snake is alive, or when the board is full and no food remains.
  reset_game starts a new episode and keeps the best score.`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x", 0)
	y, okY := intArg(args, "y", 0)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var tile engine.TileInfo
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/tiles/%d/%d", sessionID, x, y), nil, &tile); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTile(&tile)), nil
}

// Formatting

func formatSessionInfo(session *service.SessionInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session: %s\nConfig: %s\nRunning: %v\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName, session.Running,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		sb.WriteString("\n")
		sb.WriteString(formatGameState(session.GameState))
	}
	return sb.String()
}

func formatGameState(state *engine.State) string {
	if state == nil {
		return "No game state"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn: %d  Board: %dx%d", state.Turn, state.Width, state.Height)
	if state.Wrap {
		sb.WriteString(" (wrapping)")
	}
	fmt.Fprintf(&sb, "\nEpisode: %d  Best score: %d\n", state.Episodes, state.BestScore)

	sb.WriteString("\nGrid (top row is y=")
	fmt.Fprintf(&sb, "%d):\n", state.Height-1)
	for i, row := range state.Grid {
		fmt.Fprintf(&sb, "%3d %s\n", state.Height-1-i, row)
	}

	sb.WriteString("\nSnakes:\n")
	for _, s := range state.Snakes {
		status := "alive"
		if !s.IsAlive {
			status = "dead"
		}
		fmt.Fprintf(&sb, "  #%d %s head=(%d,%d) heading=%s next=%s length=%d score=%d\n",
			s.ID, status, s.Position.X, s.Position.Y, s.Direction, s.NextDirection, s.Length, s.Score)
	}

	if len(state.FoodPositions) > 0 {
		sb.WriteString("Food:")
		for _, p := range state.FoodPositions {
			fmt.Fprintf(&sb, " (%d,%d)", p.X, p.Y)
		}
		sb.WriteString("\n")
	}

	switch {
	case state.GameOver && state.BoardFull:
		sb.WriteString("\n🏁 BOARD FULL - game over\n")
	case state.GameOver:
		sb.WriteString("\n💀 GAME OVER\n")
	}
	return sb.String()
}

func formatSteerResult(result *service.SteerResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Snake %d will head %s next turn.\n", result.SnakeID, result.NextDirection)
	fmt.Fprintf(&sb, "Safe moves: %s\n", formatDirections(result.SafeMoves))
	if !containsDirection(result.SafeMoves, result.NextDirection) {
		sb.WriteString("⚠️ The latched heading is not safe.\n")
	}
	return sb.String()
}

func formatStepResult(result *service.StepResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Executed %d/%d turns (turn %d -> %d)\n",
		result.TurnsExecuted, result.RequestedTurns, result.StartTurn, result.EndTurn)
	if result.Truncated {
		fmt.Fprintf(&sb, "Request truncated to %d turns\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&sb, "Stopped: %s\n", result.StoppedReason)
	}

	if len(result.Events) > 0 {
		sb.WriteString("\nEvents:\n")
		for _, ev := range result.Events {
			fmt.Fprintf(&sb, "  [turn %d] %s\n", ev.Turn, ev.Message)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(formatGameState(result.GameState))
	return sb.String()
}

func formatTile(tile *engine.TileInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tile (%d,%d): %s\n", tile.Position.X, tile.Position.Y, tile.Type)
	if tile.SnakeID != nil {
		part := "body"
		if tile.IsHead {
			part = "head"
		}
		fmt.Fprintf(&sb, "Occupied by snake %d (%s)\n", *tile.SnakeID, part)
	}
	if tile.Type.Walkable() {
		sb.WriteString("Safe to enter\n")
	} else {
		sb.WriteString("Entering this tile is fatal unless it is your own tail\n")
	}
	return sb.String()
}

func formatDirections(dirs []engine.Direction) string {
	if len(dirs) == 0 {
		return "none"
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

func containsDirection(dirs []engine.Direction, d engine.Direction) bool {
	for _, x := range dirs {
		if x == d {
			return true
		}
	}
	return false
}
