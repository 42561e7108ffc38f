package engine

import (
	"fmt"
	"strings"
)

// Board is the tile grid plus the snakes and food tracked on it.
// Tiles is indexed Tiles[x][y].
type Board struct {
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Tiles         [][]Tile   `json:"-"`
	Snakes        []*Snake   `json:"snakes"`
	FoodPositions []Position `json:"food_positions"`
}

// NewBoard allocates a width x height grid of empty tiles
func NewBoard(width, height int, snakes ...*Snake) (*Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("board %dx%d: dimensions must be positive: %w", width, height, ErrInvalidArgument)
	}
	if err := checkSnakes(snakes); err != nil {
		return nil, err
	}

	return &Board{
		Width:  width,
		Height: height,
		Tiles:  newTiles(width, height),
		Snakes: snakes,
	}, nil
}

func newTiles(width, height int) [][]Tile {
	cells := make([]Tile, width*height)
	for i := range cells {
		cells[i].Type = TileEmpty
	}
	tiles := make([][]Tile, width)
	for x := range tiles {
		tiles[x] = cells[x*height : (x+1)*height : (x+1)*height]
	}
	return tiles
}

func checkSnakes(snakes []*Snake) error {
	seen := make(map[int]bool, len(snakes))
	for i, s := range snakes {
		if s == nil {
			return fmt.Errorf("snake at index %d is nil: %w", i, ErrInvalidArgument)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate snake id %d: %w", s.ID, ErrInvalidArgument)
		}
		seen[s.ID] = true
	}
	return nil
}

// IsOutOfBounds reports whether p lies outside the grid
func (b *Board) IsOutOfBounds(p Position) bool {
	return p.X < 0 || p.X >= b.Width || p.Y < 0 || p.Y >= b.Height
}

// Wrap folds p back onto the grid
func (b *Board) Wrap(p Position) Position {
	return Position{X: mod(p.X, b.Width), Y: mod(p.Y, b.Height)}
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

// GetTile returns the tile at x,y
func (b *Board) GetTile(x, y int) (Tile, error) {
	if b.IsOutOfBounds(Position{X: x, Y: y}) {
		return Tile{}, fmt.Errorf("tile (%d,%d) on %dx%d board: %w", x, y, b.Width, b.Height, ErrIndexOutOfRange)
	}
	return b.Tiles[x][y], nil
}

// SetTile overwrites the tile type at x,y and drops its occupant
func (b *Board) SetTile(x, y int, t TileType) error {
	if b.IsOutOfBounds(Position{X: x, Y: y}) {
		return fmt.Errorf("tile (%d,%d) on %dx%d board: %w", x, y, b.Width, b.Height, ErrIndexOutOfRange)
	}
	b.Tiles[x][y] = Tile{Type: t}
	return nil
}

func (b *Board) tileType(p Position) (TileType, bool) {
	if b.IsOutOfBounds(p) {
		return "", false
	}
	return b.Tiles[p.X][p.Y].Type, true
}

// IsSnake reports whether p holds a snake segment
func (b *Board) IsSnake(p Position) bool {
	t, ok := b.tileType(p)
	return ok && t == TileSnake
}

// IsFood reports whether p holds food
func (b *Board) IsFood(p Position) bool {
	t, ok := b.tileType(p)
	return ok && t == TileFood
}

// IsEmpty reports whether p is in bounds and free; analysis markers count as free
func (b *Board) IsEmpty(p Position) bool {
	t, ok := b.tileType(p)
	return ok && (t == TileEmpty || t == TilePath || t == TileBlocked)
}

// IsPositionSafe reports whether p is in bounds and not part of a snake
func (b *Board) IsPositionSafe(p Position) bool {
	t, ok := b.tileType(p)
	return ok && t != TileSnake && t != TileWall
}

// ClearBoard resets every tile to empty and drops occupants
func (b *Board) ClearBoard() {
	for x := range b.Tiles {
		for y := range b.Tiles[x] {
			b.Tiles[x][y] = Tile{Type: TileEmpty}
		}
	}
}

// DrawSnake marks the snake's segments. A segment off the grid kills the snake.
func (b *Board) DrawSnake(s *Snake) {
	for _, seg := range s.Body {
		if b.IsOutOfBounds(seg) {
			s.Die()
			continue
		}
		b.Tiles[seg.X][seg.Y] = Tile{Type: TileSnake, Occupant: s}
	}
}

// DrawFood marks the given positions as food. FoodPositions is not touched.
func (b *Board) DrawFood(positions []Position) {
	for _, p := range positions {
		if b.IsOutOfBounds(p) {
			continue
		}
		b.Tiles[p.X][p.Y] = Tile{Type: TileFood}
	}
}

// SpawnFood picks uniformly among cells that are not snake, food, wall or
// excluded, marks it as food and tracks it
func (b *Board) SpawnFood(rng Rand, exclude ...Position) (Position, error) {
	free := make([]Position, 0, b.Width*b.Height)
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			p := Position{X: x, Y: y}
			switch b.Tiles[x][y].Type {
			case TileSnake, TileFood, TileWall:
				continue
			}
			if containsPosition(exclude, p) {
				continue
			}
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		return Position{}, ErrNoSpaceAvailable
	}

	p := free[rng.Intn(len(free))]
	b.Tiles[p.X][p.Y] = Tile{Type: TileFood}
	b.FoodPositions = append(b.FoodPositions, p)
	return p, nil
}

// HasFood reports whether p is a tracked food position
func (b *Board) HasFood(p Position) bool {
	return containsPosition(b.FoodPositions, p)
}

// RemoveFood stops tracking the food at p. The tile is left for the next redraw.
func (b *Board) RemoveFood(p Position) bool {
	for i, f := range b.FoodPositions {
		if f == p {
			b.FoodPositions = append(b.FoodPositions[:i], b.FoodPositions[i+1:]...)
			return true
		}
	}
	return false
}

// Reset empties the grid and food and replaces the snakes. The tile
// storage is reused when the dimensions are unchanged.
func (b *Board) Reset(snakes []*Snake, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("board %dx%d: dimensions must be positive: %w", width, height, ErrInvalidArgument)
	}
	if err := checkSnakes(snakes); err != nil {
		return err
	}

	if width != b.Width || height != b.Height || len(b.Tiles) != width {
		b.Tiles = newTiles(width, height)
		b.Width, b.Height = width, height
	} else {
		b.ClearBoard()
	}
	b.Snakes = snakes
	b.FoodPositions = b.FoodPositions[:0]
	return nil
}

// SnakeByID returns the snake with the given ID, or nil
func (b *Board) SnakeByID(id int) *Snake {
	for _, s := range b.Snakes {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AliveSnakes returns the snakes still in play
func (b *Board) AliveSnakes() []*Snake {
	var alive []*Snake
	for _, s := range b.Snakes {
		if s.IsAlive {
			alive = append(alive, s)
		}
	}
	return alive
}

// FreeCells counts tiles that are neither snake, food nor wall
func (b *Board) FreeCells() int {
	n := 0
	for x := range b.Tiles {
		for y := range b.Tiles[x] {
			if b.IsEmpty(Position{X: x, Y: y}) {
				n++
			}
		}
	}
	return n
}

// Matrix encodes the grid as [x][y] with 0 empty, 1 snake, 2 food, 3 wall
func (b *Board) Matrix() [][]int {
	m := make([][]int, b.Width)
	for x := range m {
		m[x] = make([]int, b.Height)
		for y := range m[x] {
			m[x][y] = tileCode(b.Tiles[x][y].Type)
		}
	}
	return m
}

// Encode flattens Matrix x-major
func (b *Board) Encode() []int {
	out := make([]int, 0, b.Width*b.Height)
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			out = append(out, tileCode(b.Tiles[x][y].Type))
		}
	}
	return out
}

func tileCode(t TileType) int {
	switch t {
	case TileSnake:
		return 1
	case TileFood:
		return 2
	case TileWall:
		return 3
	}
	return 0
}

// Rows renders the grid as text, top row first
func (b *Board) Rows() []string {
	rows := make([]string, 0, b.Height)
	for y := b.Height - 1; y >= 0; y-- {
		var sb strings.Builder
		for x := 0; x < b.Width; x++ {
			sb.WriteByte(tileGlyph(b.Tiles[x][y], Position{X: x, Y: y}))
		}
		rows = append(rows, sb.String())
	}
	return rows
}

func tileGlyph(t Tile, p Position) byte {
	switch t.Type {
	case TileSnake:
		if t.Occupant != nil && t.Occupant.Position == p {
			return '@'
		}
		return 'o'
	case TileFood:
		return '*'
	case TileWall:
		return '#'
	case TilePath:
		return '+'
	case TileBlocked:
		return 'x'
	}
	return '.'
}

func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n")
}

func containsPosition(list []Position, p Position) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}
