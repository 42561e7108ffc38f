// Package mcp provides the Model Context Protocol interface to snakegrid.
//
// The Client registers MCP tools and proxies every call to the REST API,
// so an agent and a browser spectator see the same sessions.
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: board rows, snakes and food
//   - steer: latch an absolute direction or a relative turn for a snake
//   - step: advance a stopped session by up to engine.MaxStepTurns turns
//   - run: start or stop real-time ticking
//   - reset_game: start a new episode
//   - describe_tile: inspect one tile
//   - list_configs, game_instructions
//
// API errors are returned as MCP tool errors rather than protocol errors,
// so the agent can read the message and try again.
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp handled with GetMCPServer().HandleMessage
package mcp
