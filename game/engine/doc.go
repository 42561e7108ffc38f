// Package engine provides the core simulation for the snake grid game.
//
// The engine package implements the game mechanics including:
//   - The tile grid and food bookkeeping (Board)
//   - Snake movement, growth and death (Snake)
//   - Collision classification and the turn loop (Controller)
//   - Session-level initialize/tick with atomic snapshots (GameEngine)
//   - Configuration validation and loading
//
// Core Types:
//
// Board holds the grid, the snakes and the tracked food positions.
// Controller advances one turn over a Board: it finalizes every heading,
// resolves collisions (which may kill or grow snakes and respawn food),
// clears and redraws the grid. GameEngine wraps both behind a mutex so
// readers always see a whole turn.
//
// Usage:
//
//	config := engine.DefaultConfig()
//	config.Seed = 42
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Steer(0, engine.Right)
//	report, err := gameEngine.Tick()
//	state := gameEngine.Snapshot()
//
// Coordinates:
//
// (0,0) is the bottom-left tile and y grows upward, so Up is (0,1).
// Tiles are indexed Tiles[x][y].
package engine
