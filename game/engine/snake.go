package engine

import "fmt"

// Snake is one player on the board. Body[0] is the head.
type Snake struct {
	ID            int        `json:"id"`
	Position      Position   `json:"position"`
	Direction     Direction  `json:"direction"`
	NextDirection Direction  `json:"next_direction"`
	Body          []Position `json:"body"`
	Length        int        `json:"length"`
	Score         int        `json:"score"`
	IsAlive       bool       `json:"alive"`
	AteFood       bool       `json:"ate_food"`
	Autopilot     bool       `json:"autopilot,omitempty"`
}

// NewSnake creates a live snake whose body trails behind position,
// opposite to direction
func NewSnake(id int, position Position, direction Direction, length int) (*Snake, error) {
	if length < 1 {
		return nil, fmt.Errorf("snake %d: length must be at least 1, got %d: %w", id, length, ErrInvalidArgument)
	}
	if !direction.IsValid() {
		return nil, fmt.Errorf("snake %d: direction %v is not a unit heading: %w", id, direction, ErrInvalidArgument)
	}

	body := make([]Position, length)
	for i := range body {
		body[i] = position.Offset(direction, -i)
	}

	return &Snake{
		ID:            id,
		Position:      position,
		Direction:     direction,
		NextDirection: direction,
		Body:          body,
		Length:        length,
		IsAlive:       true,
	}, nil
}

// Head returns the head position
func (s *Snake) Head() Position {
	return s.Position
}

// Tail returns the last body segment
func (s *Snake) Tail() Position {
	if len(s.Body) == 0 {
		return s.Position
	}
	return s.Body[len(s.Body)-1]
}

// Grow lengthens the snake by duplicating its tail; the duplicate
// separates on the next move
func (s *Snake) Grow() {
	s.Body = append(s.Body, s.Tail())
	s.Length++
	s.Score++
	s.AteFood = true
}

// Die marks the snake dead, leaving its body and position in place
func (s *Snake) Die() {
	s.IsAlive = false
}

// ContainsPosition reports whether any body segment is at p
func (s *Snake) ContainsPosition(p Position) bool {
	for _, seg := range s.Body[:min(s.Length, len(s.Body))] {
		if seg == p {
			return true
		}
	}
	return false
}

// ConsumeAteFood returns the growth flag and clears it
func (s *Snake) ConsumeAteFood() bool {
	ate := s.AteFood
	s.AteFood = false
	return ate
}

// Steer latches the heading for the next turn. Reversal onto the
// committed heading and non-unit headings are rejected.
func (s *Snake) Steer(d Direction) bool {
	if !d.IsValid() || d == s.Direction.Opposite() {
		return false
	}
	s.NextDirection = d
	return true
}

// Turn latches a heading relative to the committed one
func (s *Snake) Turn(r RelativeTurn) bool {
	d, ok := r.Apply(s.Direction)
	if !ok {
		return false
	}
	s.NextDirection = d
	return true
}

// tailVacates reports whether the tail cell frees up when the snake
// moves this turn. A tail duplicated by Grow stays put.
func (s *Snake) tailVacates() bool {
	n := len(s.Body)
	return n >= 3 && s.Body[n-1] != s.Body[n-2]
}

// Clone returns a deep copy
func (s *Snake) Clone() *Snake {
	c := *s
	c.Body = append([]Position(nil), s.Body...)
	return &c
}
