package engine

import (
	"errors"
	"math/rand"
	"testing"
)

// fixedRand always picks index i (mod n)
type fixedRand struct{ i int }

func (r fixedRand) Intn(n int) int { return r.i % n }

// makeSnake builds a live snake from an explicit body, heading away from the neck
func makeSnake(id int, body ...Position) *Snake {
	dir := Up
	if len(body) > 1 {
		diff := body[0].Sub(body[1])
		dir = Direction{X: diff.X, Y: diff.Y}
	}
	return &Snake{
		ID:            id,
		Position:      body[0],
		Direction:     dir,
		NextDirection: dir,
		Body:          append([]Position(nil), body...),
		Length:        len(body),
		IsAlive:       true,
	}
}

func pos(x, y int) Position { return Position{X: x, Y: y} }

// assertFoodConsistent checks tracked food and food tiles match one-to-one
func assertFoodConsistent(t *testing.T, b *Board) {
	t.Helper()
	tiles := 0
	for x := 0; x < b.Width; x++ {
		for y := 0; y < b.Height; y++ {
			if b.Tiles[x][y].Type == TileFood {
				tiles++
				if !b.HasFood(pos(x, y)) {
					t.Errorf("food tile at (%d,%d) is not tracked\n%s", x, y, b)
				}
			}
		}
	}
	if tiles != len(b.FoodPositions) {
		t.Errorf("expected %d food tiles, got %d\n%s", len(b.FoodPositions), tiles, b)
	}
}

func TestNewBoard_InvalidDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 5},
		{"zero height", 5, 0},
		{"negative width", -1, 3},
		{"negative height", 3, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBoard(tt.width, tt.height)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestNewBoard_AllEmpty(t *testing.T) {
	b, err := NewBoard(4, 3)
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	if len(b.Tiles) != 4 || len(b.Tiles[0]) != 3 {
		t.Fatalf("expected 4x3 tiles, got %dx%d", len(b.Tiles), len(b.Tiles[0]))
	}
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			if b.Tiles[x][y].Type != TileEmpty {
				t.Errorf("tile (%d,%d) expected empty, got %s", x, y, b.Tiles[x][y].Type)
			}
		}
	}
	if b.FreeCells() != 12 {
		t.Errorf("expected 12 free cells, got %d", b.FreeCells())
	}
}

func TestNewBoard_RejectsDuplicateSnakeIDs(t *testing.T) {
	a := makeSnake(1, pos(0, 0))
	c := makeSnake(1, pos(2, 2))
	if _, err := NewBoard(5, 5, a, c); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for duplicate ids, got %v", err)
	}
	if _, err := NewBoard(5, 5, a, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nil snake, got %v", err)
	}
}

func TestGetTile_OutOfRange(t *testing.T) {
	b, _ := NewBoard(3, 2)

	tests := []struct {
		x, y int
		ok   bool
	}{
		{0, 0, true},
		{2, 1, true},
		{3, 0, false},
		{0, 2, false},
		{-1, 0, false},
		{0, -1, false},
	}

	for _, tt := range tests {
		_, err := b.GetTile(tt.x, tt.y)
		if tt.ok && err != nil {
			t.Errorf("GetTile(%d,%d) unexpected error: %v", tt.x, tt.y, err)
		}
		if !tt.ok && !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("GetTile(%d,%d) expected ErrIndexOutOfRange, got %v", tt.x, tt.y, err)
		}
	}

	if err := b.SetTile(5, 5, TileWall); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetTile out of range expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestClearBoard_Idempotent(t *testing.T) {
	s := makeSnake(0, pos(1, 1), pos(1, 0))
	b, _ := NewBoard(3, 3, s)
	b.DrawSnake(s)
	b.FoodPositions = []Position{pos(2, 2)}
	b.DrawFood(b.FoodPositions)

	b.ClearBoard()
	first := b.Matrix()
	b.ClearBoard()
	second := b.Matrix()

	for x := range first {
		for y := range first[x] {
			if first[x][y] != 0 || second[x][y] != 0 {
				t.Errorf("tile (%d,%d) not empty after clear", x, y)
			}
			if b.Tiles[x][y].Occupant != nil {
				t.Errorf("tile (%d,%d) kept its occupant", x, y)
			}
		}
	}
}

func TestDrawSnake(t *testing.T) {
	s := makeSnake(7, pos(1, 1), pos(1, 0))
	b, _ := NewBoard(3, 3, s)
	b.DrawSnake(s)

	tile, _ := b.GetTile(1, 1)
	if tile.Type != TileSnake || tile.Occupant != s {
		t.Errorf("expected head tile to be snake 7, got %+v", tile)
	}
	if !s.IsAlive {
		t.Error("in-bounds snake should stay alive")
	}

	off := makeSnake(8, pos(0, 0), pos(-1, 0))
	b.DrawSnake(off)
	if off.IsAlive {
		t.Error("snake with a segment off the board should die")
	}
	if !b.IsSnake(pos(0, 0)) {
		t.Error("in-bounds segment should still be drawn")
	}
}

func TestDrawFood_DoesNotTrack(t *testing.T) {
	b, _ := NewBoard(3, 3)
	b.DrawFood([]Position{pos(0, 0), pos(9, 9)})

	if !b.IsFood(pos(0, 0)) {
		t.Error("expected food tile at (0,0)")
	}
	if len(b.FoodPositions) != 0 {
		t.Errorf("DrawFood must not track positions, got %v", b.FoodPositions)
	}
}

func TestSpawnFood_SingleFreeCell(t *testing.T) {
	s := makeSnake(0, pos(0, 0), pos(0, 1), pos(1, 1))
	b, _ := NewBoard(2, 2, s)
	b.DrawSnake(s)

	for _, r := range []Rand{fixedRand{0}, rand.New(rand.NewSource(99))} {
		b.FoodPositions = nil
		b.ClearBoard()
		b.DrawSnake(s)

		p, err := b.SpawnFood(r)
		if err != nil {
			t.Fatalf("SpawnFood failed: %v", err)
		}
		if p != pos(1, 0) {
			t.Errorf("expected the only free cell (1,0), got %v", p)
		}
		if !b.IsFood(p) || !b.HasFood(p) {
			t.Error("spawned food should be drawn and tracked")
		}
		assertFoodConsistent(t, b)
	}
}

func TestSpawnFood_NoSpace(t *testing.T) {
	s := makeSnake(0, pos(0, 0))
	b, _ := NewBoard(2, 1, s)
	b.DrawSnake(s)
	if _, err := b.SpawnFood(fixedRand{0}); err != nil {
		t.Fatalf("first spawn failed: %v", err)
	}

	before := append([]Position(nil), b.FoodPositions...)
	_, err := b.SpawnFood(fixedRand{0})
	if !errors.Is(err, ErrNoSpaceAvailable) {
		t.Fatalf("expected ErrNoSpaceAvailable, got %v", err)
	}
	if len(b.FoodPositions) != len(before) {
		t.Errorf("failed spawn changed food positions: %v", b.FoodPositions)
	}
	assertFoodConsistent(t, b)
}

func TestSpawnFood_Exclude(t *testing.T) {
	b, _ := NewBoard(2, 1)
	p, err := b.SpawnFood(fixedRand{0}, pos(0, 0))
	if err != nil {
		t.Fatalf("SpawnFood failed: %v", err)
	}
	if p != pos(1, 0) {
		t.Errorf("expected excluded cell to be skipped, got %v", p)
	}
	if _, err := b.SpawnFood(fixedRand{0}, pos(0, 0)); !errors.Is(err, ErrNoSpaceAvailable) {
		t.Errorf("expected ErrNoSpaceAvailable once only excluded cells remain, got %v", err)
	}
}

func TestSpawnFood_Uniform(t *testing.T) {
	b, _ := NewBoard(3, 3)
	rng := rand.New(rand.NewSource(1))
	counts := make(map[Position]int)

	const draws = 9000
	for i := 0; i < draws; i++ {
		b.ClearBoard()
		b.FoodPositions = b.FoodPositions[:0]
		p, err := b.SpawnFood(rng)
		if err != nil {
			t.Fatalf("SpawnFood failed: %v", err)
		}
		counts[p]++
	}

	if len(counts) != 9 {
		t.Fatalf("expected all 9 cells to be chosen, got %d", len(counts))
	}
	for p, n := range counts {
		if n < 800 || n > 1200 {
			t.Errorf("cell %v chosen %d times, expected about %d", p, n, draws/9)
		}
	}
}

func TestBoardReset(t *testing.T) {
	s := makeSnake(0, pos(1, 1))
	b, _ := NewBoard(4, 4, s)
	b.DrawSnake(s)
	b.SpawnFood(fixedRand{0})
	storage := &b.Tiles[0][0]

	fresh := makeSnake(1, pos(2, 2))
	if err := b.Reset([]*Snake{fresh}, 4, 4); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if &b.Tiles[0][0] != storage {
		t.Error("same-size reset should reuse tile storage")
	}
	if len(b.FoodPositions) != 0 || b.FreeCells() != 16 {
		t.Errorf("reset board should be empty, food=%v free=%d", b.FoodPositions, b.FreeCells())
	}
	if len(b.Snakes) != 1 || b.Snakes[0] != fresh {
		t.Error("reset should replace the snakes")
	}

	if err := b.Reset(nil, 6, 2); err != nil {
		t.Fatalf("resize reset failed: %v", err)
	}
	if b.Width != 6 || b.Height != 2 || len(b.Tiles) != 6 || len(b.Tiles[0]) != 2 {
		t.Errorf("expected 6x2 board, got %dx%d", b.Width, b.Height)
	}

	if err := b.Reset(nil, 0, 2); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestMatrixAndRows(t *testing.T) {
	s := makeSnake(0, pos(0, 1), pos(0, 0))
	b, _ := NewBoard(2, 2, s)
	b.DrawSnake(s)
	b.FoodPositions = []Position{pos(1, 1)}
	b.DrawFood(b.FoodPositions)

	m := b.Matrix()
	if m[0][0] != 1 || m[0][1] != 1 || m[1][1] != 2 || m[1][0] != 0 {
		t.Errorf("unexpected matrix %v", m)
	}

	enc := b.Encode()
	want := []int{1, 1, 0, 2}
	for i := range want {
		if enc[i] != want[i] {
			t.Fatalf("expected encoding %v, got %v", want, enc)
		}
	}

	rows := b.Rows()
	if rows[0] != "@*" || rows[1] != "o." {
		t.Errorf("unexpected rows %q", rows)
	}
}

func TestRemoveFood(t *testing.T) {
	b, _ := NewBoard(3, 3)
	b.FoodPositions = []Position{pos(0, 0), pos(1, 1), pos(2, 2)}

	if !b.RemoveFood(pos(1, 1)) {
		t.Fatal("expected tracked food to be removed")
	}
	if b.RemoveFood(pos(1, 1)) {
		t.Error("second removal should report false")
	}
	if len(b.FoodPositions) != 2 || b.HasFood(pos(1, 1)) {
		t.Errorf("unexpected food positions %v", b.FoodPositions)
	}
}
