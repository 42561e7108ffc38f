// Command analyze prints quick, human-readable heuristics about the
// configuration files in a configs directory. For each board it shows the
// starting layout, how much open space lies ahead of every snake, how far the
// nearest food is, and flags snakes that start enclosed.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/snakegrid/game/config"
	"github.com/wricardo/mcp-training/snakegrid/game/engine"
	"github.com/wricardo/mcp-training/snakegrid/validate"
)

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print space heuristics for board configurations",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				results, err := filepath.Glob(filepath.Join(cmd.String("config-dir"), "*"))
				if err != nil {
					return err
				}
				for _, f := range results {
					switch strings.ToLower(filepath.Ext(f)) {
					case ".json", ".yaml", ".yml":
						files = append(files, f)
					}
				}
			}

			for _, f := range files {
				fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(f))
				if err := analyzeConfig(os.Stdout, f); err != nil {
					fmt.Printf("Error: %v\n", err)
				}
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func analyzeConfig(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	cfg, err := config.Parse(data, filepath.Ext(path))
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(cfg, engine.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		return err
	}
	state := eng.Snapshot()

	fmt.Fprintf(w, "Name: %s\n", cfg.Name)
	fmt.Fprintf(w, "Board: %d x %d, wrap=%v\n", cfg.Width, cfg.Height, cfg.Wrap)
	fmt.Fprintf(w, "Snakes: %d of length %d, food: %d\n", cfg.SnakeCount, cfg.StartLength, len(state.FoodPositions))
	for _, row := range state.Grid {
		fmt.Fprintf(w, "   %s\n", row)
	}

	enclosed := 0
	for i := range state.Snakes {
		s := state.Snakes[i]

		board, err := validate.BuildBoard(state)
		if err != nil {
			return err
		}

		room := 0
		var bestDir engine.Direction
		for _, d := range engine.SafeDirections(board, &s, cfg.Wrap) {
			next := s.Position.Step(d)
			if cfg.Wrap {
				next = board.Wrap(next)
			}
			if n := engine.ReachableCount(board, next, 0, cfg.Wrap); n > room {
				room = n
				bestDir = d
			}
		}

		nearest := -1
		for _, f := range state.FoodPositions {
			if d := engine.ManhattanDistance(s.Position, f); nearest < 0 || d < nearest {
				nearest = d
			}
		}

		if room == 0 {
			enclosed++
			fmt.Fprintf(w, "⚠️  Snake %d at (%d, %d) has no safe first move\n", s.ID, s.Position.X, s.Position.Y)
			continue
		}

		// Mark the best region on the copy so it shows up in the map
		next := s.Position.Step(bestDir)
		if cfg.Wrap {
			next = board.Wrap(next)
		}
		best := engine.AnalyzeSpace(board, next, 0, cfg.Wrap)
		fmt.Fprintf(w, "Snake %d: head (%d, %d), best move %s opens %d cells, nearest food %d away\n",
			s.ID, s.Position.X, s.Position.Y, bestDir, best.Reachable, nearest)
		if best.Enclosed || best.Reachable < s.Length {
			enclosed++
			fmt.Fprintf(w, "⚠️  Snake %d starts enclosed\n", s.ID)
			for _, row := range board.Rows() {
				fmt.Fprintf(w, "   %s\n", row)
			}
		}
	}

	if enclosed == 0 {
		fmt.Fprintf(w, "✅ Every snake starts with room to move\n")
	}
	return nil
}
