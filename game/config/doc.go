// Package config provides configuration management for snakegrid boards.
//
// The config package handles:
//   - Loading board configurations from JSON or YAML files
//   - Schema checks followed by engine validation
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Each file in the config directory describes one board: its size, how
// many snakes start on it and how long they are, how much food is kept on
// the board, whether the edges wrap, the runner's turn duration and an
// optional seed. Snakes are placed randomly unless a spawns list pins them.
//
//	name: duel
//	width: 12
//	height: 12
//	snake_count: 2
//	start_length: 3
//	food_count: 2
//	wrap: true
//	spawns:
//	  - {x: 2, y: 6, direction: right}
//	  - {x: 9, y: 5, direction: left, autopilot: true}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("duel")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When no config named classic exists and nothing else loads, the default
// is engine.DefaultConfig.
package config
