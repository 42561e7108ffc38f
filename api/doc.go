// Package api provides the HTTP REST API and WebSocket endpoint for snakegrid.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session and stop its runner
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board, snakes and food
//   - POST /api/sessions/{id}/steer - {"snake_id": 0, "direction": "up"} or {"turn": "left"}
//   - POST /api/sessions/{id}/step - {"turns": N}, at most engine.MaxStepTurns per call
//   - POST /api/sessions/{id}/run - {"action": "start|stop"}
//   - POST /api/sessions/{id}/reset - Start a new episode
//   - GET /api/sessions/{id}/tiles/{x}/{y} - Describe one tile
//
// Configuration:
//   - GET /api/configs - List configurations
//   - GET /api/configs/{name} - Get a configuration
//   - POST /api/configs - Save a configuration
//
// Spectating:
//   - GET /ws?session={id} - WebSocket stream of state, turn and reset messages
//
// Errors are returned as {"error": "..."}. Unknown sessions, configs and
// snakes map to 404, bad arguments and out-of-range tiles to 400, and
// actions against a finished game or a running session to 409.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	server := api.NewServer(gameService, hub)
//	http.ListenAndServe(":8080", server)
package api
