// Package validate checks board configuration files before they are served.
// Beyond schema and field validation it builds each board once and checks:
//   - every snake can initialize (spawns fit, no overlap, food placed)
//   - every snake has at least one safe first move
//   - the open space in front of each snake, reported as info and flagged
//     when it is smaller than the snake
package validate

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/snakegrid/game/config"
	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors holds problems when Valid is false; Info holds the summary lines.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

// ValidateFile loads and validates a single configuration file
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := config.Parse(data, filepath.Ext(path))
	if err != nil {
		result.fail("%v", err)
		return result
	}

	// A fixed source keeps random spawns reproducible between runs
	eng, err := engine.NewEngine(cfg, engine.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		result.fail("Cannot initialize board: %v", err)
		return result
	}
	state := eng.Snapshot()

	board, err := BuildBoard(state)
	if err != nil {
		result.fail("Cannot rebuild board: %v", err)
		return result
	}

	for _, s := range board.Snakes {
		safe := engine.SafeDirections(board, s, cfg.Wrap)
		if len(safe) == 0 {
			result.fail("Snake %d at (%d,%d) has no safe first move", s.ID, s.Position.X, s.Position.Y)
			continue
		}

		space := 0
		for _, d := range safe {
			next := s.Position.Step(d)
			if cfg.Wrap {
				next = board.Wrap(next)
			}
			if n := engine.ReachableCount(board, next, 0, cfg.Wrap); n > space {
				space = n
			}
		}
		if space < s.Length {
			result.fail("Snake %d can reach only %d cells, less than its length %d", s.ID, space, s.Length)
			continue
		}
		result.info("✓ Snake %d: head (%d,%d) heading %s, %d safe moves, %d open cells",
			s.ID, s.Position.X, s.Position.Y, s.Direction, len(safe), space)
	}

	if result.Valid {
		wrap := "walls"
		if cfg.Wrap {
			wrap = "wrapping"
		}
		result.Info = append([]string{
			fmt.Sprintf("✓ Name: %s", cfg.Name),
			fmt.Sprintf("✓ Board: %dx%d (%s)", cfg.Width, cfg.Height, wrap),
			fmt.Sprintf("✓ Snakes: %d of length %d", cfg.SnakeCount, cfg.StartLength),
			fmt.Sprintf("✓ Food: %d, free cells after spawn: %d", len(state.FoodPositions), board.FreeCells()),
		}, result.Info...)
		if len(cfg.Autopilot) > 0 {
			result.info("✓ Autopilot snakes: %v", cfg.Autopilot)
		}
	}

	return result
}

// BuildBoard draws a snapshot onto a fresh board for analysis
func BuildBoard(state *engine.State) (*engine.Board, error) {
	snakes := make([]*engine.Snake, len(state.Snakes))
	for i := range state.Snakes {
		s := state.Snakes[i]
		snakes[i] = &s
	}
	board, err := engine.NewBoard(state.Width, state.Height, snakes...)
	if err != nil {
		return nil, err
	}
	for _, s := range snakes {
		board.DrawSnake(s)
	}
	board.FoodPositions = append(board.FoodPositions, state.FoodPositions...)
	board.DrawFood(board.FoodPositions)
	return board, nil
}

// ValidateDir validates every .json, .yaml and .yml file in dir, sorted by name
func ValidateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, f := range files {
		results = append(results, ValidateFile(f))
	}
	return results, nil
}

// Report prints a concise report and returns whether every result is valid
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No configuration files found")
	case allValid:
		fmt.Fprintln(w, "✅ All configurations are valid!")
	default:
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}
