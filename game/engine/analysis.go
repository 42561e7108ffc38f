package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// SpaceReport summarizes a flood fill from one cell
type SpaceReport struct {
	Reachable int        `json:"reachable"`
	Enclosed  bool       `json:"enclosed"`
	Cells     []Position `json:"-"`
}

// SafeDirections returns the headings a snake can take without hitting a
// wall or a snake segment this turn. The reverse heading is never offered.
func SafeDirections(b *Board, s *Snake, wrap bool) []Direction {
	var safe []Direction
	for _, d := range Directions {
		if d == s.Direction.Opposite() {
			continue
		}
		next := s.Position.Step(d)
		if wrap {
			next = b.Wrap(next)
		}
		if b.IsPositionSafe(next) || (next == s.Tail() && s.tailVacates()) {
			safe = append(safe, d)
		}
	}
	return safe
}

// AnalyzeSpace flood-fills free cells from start, up to limit cells
// (limit <= 0 means the whole board). Reached cells are marked Path, or
// Blocked when fewer than EnclosedThreshold are reachable. Food tiles keep
// their type. The markers are dropped by the next ClearBoard.
func AnalyzeSpace(b *Board, start Position, limit int, wrap bool) SpaceReport {
	cells := flood(b, start, limit, wrap)
	report := SpaceReport{
		Reachable: len(cells),
		Enclosed:  len(cells) < EnclosedThreshold,
		Cells:     cells,
	}

	mark := TilePath
	if report.Enclosed {
		mark = TileBlocked
	}
	for _, p := range cells {
		if b.Tiles[p.X][p.Y].Type != TileFood {
			b.Tiles[p.X][p.Y] = Tile{Type: mark}
		}
	}
	return report
}

// ReachableCount counts free cells reachable from start without marking the board
func ReachableCount(b *Board, start Position, limit int, wrap bool) int {
	return len(flood(b, start, limit, wrap))
}

// MoveRoom counts the free cells reachable once s moves along d. A tail
// the snake vacates this turn counts as free.
func MoveRoom(b *Board, s *Snake, d Direction, limit int, wrap bool) int {
	next := s.Position.Step(d)
	if wrap {
		next = b.Wrap(next)
	}
	var open []Position
	if s.tailVacates() {
		open = append(open, s.Tail())
	}
	return len(flood(b, next, limit, wrap, open...))
}

// flood walks safe cells from start; open cells count as safe even when
// the board shows a snake there
func flood(b *Board, start Position, limit int, wrap bool, open ...Position) []Position {
	if limit <= 0 {
		limit = b.Width * b.Height
	}
	safe := func(p Position) bool {
		return b.IsPositionSafe(p) || containsPosition(open, p)
	}
	if b.IsOutOfBounds(start) || !safe(start) {
		return nil
	}

	visited := make([]bool, b.Width*b.Height)
	visited[start.X*b.Height+start.Y] = true
	queue := []Position{start}
	var cells []Position

	for len(queue) > 0 && len(cells) < limit {
		p := queue[0]
		queue = queue[1:]
		cells = append(cells, p)

		for _, d := range Directions {
			n := p.Step(d)
			if wrap {
				n = b.Wrap(n)
			}
			if b.IsOutOfBounds(n) || !safe(n) {
				continue
			}
			idx := n.X*b.Height + n.Y
			if visited[idx] {
				continue
			}
			visited[idx] = true
			queue = append(queue, n)
		}
	}
	return cells
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
