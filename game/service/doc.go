// Package service provides the business logic layer for snakegrid.
//
// The service package implements:
//   - Multi-session game management
//   - Steering and manual stepping
//   - Starting and stopping per-session runners
//   - Turn observers for spectators and turn logs
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine and, while running, one
// runner goroutine. A session is either stepped by hand or running, never
// both: Step on a running session returns ErrSessionRunning.
//
// Usage:
//
//	sessionMgr := session.NewManager(engine.WithPilot(autopilot.Choose))
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	gameService.Subscribe(func(id, kind string, report *engine.TurnReport, state *engine.State) {
//		hub.BroadcastTurn(id, kind, report, state)
//	})
//
//	info, err := gameService.CreateSession(ctx, "duel")
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService.Steer(ctx, info.ID, service.SteerRequest{SnakeID: 0, Direction: "left"})
//	result, err := gameService.Step(ctx, info.ID, 5)
//
// Observers run synchronously on the goroutine that produced the turn, so
// they must not block.
package service
