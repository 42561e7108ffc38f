package engine

import "errors"

var (
	// ErrInvalidArgument is returned for bad dimensions, lengths, headings or configs
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange is returned for tile access outside the grid
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNoSpaceAvailable is returned when no free cell is left for food or a snake
	ErrNoSpaceAvailable = errors.New("no space available")
	// ErrSnakeNotFound is returned when a snake ID is not on the board
	ErrSnakeNotFound = errors.New("snake not found")
	// ErrGameOver is returned when ticking a finished game
	ErrGameOver = errors.New("game over")
)
