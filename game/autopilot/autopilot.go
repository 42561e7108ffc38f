// Package autopilot steers bot-driven snakes.
//
// Choose has the engine.Pilot signature, so it can be handed straight to
// engine.WithPilot. It only looks one move ahead: among the safe headings it
// prefers moves that leave at least as much open space as the snake is
// long, then moves that get closer to the nearest food, then keeping the
// current heading.
package autopilot

import (
	"github.com/wricardo/mcp-training/snakegrid/game/engine"
)

type candidate struct {
	dir      engine.Direction
	space    int
	distance int
	trapped  bool
}

// Choose picks the next heading for s. With no safe heading it keeps the
// current one.
func Choose(b *engine.Board, s *engine.Snake, wrap bool) engine.Direction {
	safe := engine.SafeDirections(b, s, wrap)
	if len(safe) == 0 {
		return s.Direction
	}

	var best *candidate
	for _, d := range safe {
		next := s.Position.Step(d)
		if wrap {
			next = b.Wrap(next)
		}

		c := &candidate{
			dir:      d,
			space:    engine.MoveRoom(b, s, d, s.Length*4, wrap),
			distance: nearestFood(b, next, wrap),
		}
		c.trapped = c.space < s.Length
		if best == nil || better(c, best, s.Direction) {
			best = c
		}
	}
	return best.dir
}

func better(c, best *candidate, heading engine.Direction) bool {
	if c.trapped != best.trapped {
		return !c.trapped
	}
	if c.trapped && c.space != best.space {
		return c.space > best.space
	}
	if c.distance != best.distance {
		return c.distance < best.distance
	}
	if (c.dir == heading) != (best.dir == heading) {
		return c.dir == heading
	}
	return c.space > best.space
}

// nearestFood returns the distance from p to the closest tracked food, or
// a large value when there is none
func nearestFood(b *engine.Board, p engine.Position, wrap bool) int {
	min := b.Width + b.Height + 1
	for _, f := range b.FoodPositions {
		if d := distance(b, p, f, wrap); d < min {
			min = d
		}
	}
	return min
}

func distance(b *engine.Board, from, to engine.Position, wrap bool) int {
	if !wrap {
		return engine.ManhattanDistance(from, to)
	}
	dx := abs(from.X - to.X)
	dy := abs(from.Y - to.Y)
	if b.Width-dx < dx {
		dx = b.Width - dx
	}
	if b.Height-dy < dy {
		dy = b.Height - dy
	}
	return dx + dy
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
