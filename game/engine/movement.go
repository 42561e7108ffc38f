package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Controller advances snakes over a board one turn at a time
type Controller struct {
	Wrap bool
	Rand Rand

	pending []Position // next head cells of live snakes this turn
	eaten   []Position // food cells consumed this turn
	spawned []Position
	full    bool
}

// NewController creates a controller. A nil rng is replaced by a time-seeded one.
func NewController(wrap bool, rng Rand) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{Wrap: wrap, Rand: rng}
}

// FinalizeDirection commits the latched heading
func (c *Controller) FinalizeDirection(s *Snake) {
	s.Direction = s.NextDirection
}

// NextPosition returns the cell the snake's head enters this turn
func (c *Controller) NextPosition(b *Board, s *Snake) Position {
	next := s.Position.Step(s.Direction)
	if c.Wrap {
		next = b.Wrap(next)
	}
	return next
}

// CheckCollisions classifies the snake's next cell. Walls and snakes kill it.
// Food is removed from tracking, grows the snake and respawns elsewhere.
// Every snake entering a cell eaten this turn grows too, so check order
// never decides who eats. Must run before Move.
func (c *Controller) CheckCollisions(b *Board, s *Snake) (Outcome, error) {
	next := c.NextPosition(b, s)
	if b.IsOutOfBounds(next) {
		s.Die()
		return OutcomeWall, nil
	}

	switch b.Tiles[next.X][next.Y].Type {
	case TileWall:
		s.Die()
		return OutcomeWall, nil

	case TileSnake:
		if next == s.Tail() && s.tailVacates() {
			return OutcomeEmpty, nil
		}
		s.Die()
		return OutcomeSnake, nil

	case TileFood:
		if !b.RemoveFood(next) {
			if !containsPosition(c.eaten, next) {
				return OutcomeEmpty, nil
			}
			// shared with a snake checked earlier this turn
			s.Grow()
			return OutcomeFood, nil
		}
		c.eaten = append(c.eaten, next)
		s.Grow()
		p, err := b.SpawnFood(c.Rand, c.pending...)
		switch {
		case errors.Is(err, ErrNoSpaceAvailable):
			c.full = true
		case err != nil:
			return OutcomeFood, fmt.Errorf("respawn food for snake %d: %w", s.ID, err)
		default:
			c.spawned = append(c.spawned, p)
		}
		return OutcomeFood, nil
	}

	return OutcomeEmpty, nil
}

// Move advances a live snake one cell, shifting the body toward the head
func (c *Controller) Move(b *Board, s *Snake) {
	if !s.IsAlive {
		return
	}
	next := c.NextPosition(b, s)
	for i := len(s.Body) - 1; i > 0; i-- {
		s.Body[i] = s.Body[i-1]
	}
	if len(s.Body) > 0 {
		s.Body[0] = next
	}
	s.Position = next
}

// ResolveHeadOn settles live snakes entering the same cell: the longest
// survives, equal lengths all die. Returns the IDs killed.
func (c *Controller) ResolveHeadOn(b *Board) []int {
	groups := make(map[Position][]*Snake)
	var order []Position
	for _, s := range b.Snakes {
		if !s.IsAlive {
			continue
		}
		next := c.NextPosition(b, s)
		if _, ok := groups[next]; !ok {
			order = append(order, next)
		}
		groups[next] = append(groups[next], s)
	}

	var killed []int
	for _, p := range order {
		group := groups[p]
		if len(group) < 2 {
			continue
		}
		longest, unique := 0, false
		for _, s := range group {
			switch {
			case s.Length > longest:
				longest, unique = s.Length, true
			case s.Length == longest:
				unique = false
			}
		}
		for _, s := range group {
			if unique && s.Length == longest {
				continue
			}
			s.Die()
			killed = append(killed, s.ID)
		}
	}
	return killed
}

// Turn runs one full turn: finalize headings, resolve collisions for every
// live snake, clear and redraw the grid, then move and draw the survivors
func (c *Controller) Turn(b *Board) (*TurnReport, error) {
	c.pending = c.pending[:0]
	c.eaten = c.eaten[:0]
	c.spawned = nil
	c.full = false

	var movers []*Snake
	for _, s := range b.Snakes {
		s.ConsumeAteFood()
		if s.IsAlive {
			c.FinalizeDirection(s)
			movers = append(movers, s)
			c.pending = append(c.pending, c.NextPosition(b, s))
		}
	}

	report := &TurnReport{Results: make([]SnakeResult, 0, len(movers))}
	for _, s := range movers {
		outcome, err := c.CheckCollisions(b, s)
		if err != nil {
			return nil, err
		}
		res := SnakeResult{SnakeID: s.ID, Outcome: outcome}
		if !s.IsAlive {
			res.Cause = string(outcome)
		}
		report.Results = append(report.Results, res)
	}

	for _, id := range c.ResolveHeadOn(b) {
		for i := range report.Results {
			if report.Results[i].SnakeID == id {
				report.Results[i].Cause = CauseHeadOn
			}
		}
	}

	b.ClearBoard()
	b.DrawFood(b.FoodPositions)
	for _, s := range movers {
		if !s.IsAlive {
			continue
		}
		c.Move(b, s)
		b.DrawSnake(s)
	}

	for i, s := range movers {
		res := &report.Results[i]
		res.Position = s.Position
		res.Direction = s.Direction
		res.Length = s.Length
		res.Score = s.Score
		res.Alive = s.IsAlive
	}
	report.FoodSpawned = c.spawned
	report.BoardFull = c.full
	return report, nil
}

// CreateSnakes places count new snakes of the given length on free cells,
// each drawn uniformly from every placement where the whole body fits and
// the first move stays on the grid
func (c *Controller) CreateSnakes(b *Board, count, length int) ([]*Snake, error) {
	if count < 1 || length < 1 {
		return nil, fmt.Errorf("create %d snakes of length %d: %w", count, length, ErrInvalidArgument)
	}

	nextID := 0
	for _, s := range b.Snakes {
		if s.ID >= nextID {
			nextID = s.ID + 1
		}
	}

	created := make([]*Snake, 0, count)
	for i := 0; i < count; i++ {
		type placement struct {
			head Position
			dir  Direction
		}
		var candidates []placement
		for x := 0; x < b.Width; x++ {
			for y := 0; y < b.Height; y++ {
				head := Position{X: x, Y: y}
				for _, d := range Directions {
					if c.fits(b, head, d, length) {
						candidates = append(candidates, placement{head, d})
					}
				}
			}
		}
		if len(candidates) == 0 {
			return created, fmt.Errorf("place snake %d of length %d: %w", nextID, length, ErrNoSpaceAvailable)
		}

		pick := candidates[c.Rand.Intn(len(candidates))]
		s, err := NewSnake(nextID, pick.head, pick.dir, length)
		if err != nil {
			return created, err
		}
		nextID++
		b.Snakes = append(b.Snakes, s)
		b.DrawSnake(s)
		created = append(created, s)
	}
	return created, nil
}

func (c *Controller) fits(b *Board, head Position, d Direction, length int) bool {
	for i := 0; i < length; i++ {
		if !b.IsEmpty(head.Offset(d, -i)) {
			return false
		}
	}
	first := head.Step(d)
	if c.Wrap {
		first = b.Wrap(first)
	}
	return b.IsEmpty(first) || b.IsFood(first)
}
