package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Symbol is the mark a player places on the board.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"

	EmptyCell Symbol = ""
)

const BoardSize = 9

var ErrMalformedBoard = errors.New("board must contain exactly 9 cells")

// IsValid reports whether the symbol is one of the two player symbols.
func (that Symbol) IsValid() bool {
	return that == SymbolX || that == SymbolO
}

// Board is a row-major 3x3 grid. It is a value type: copies never share cells.
type Board [BoardSize]Symbol

func NewBoard() Board {
	return Board{}
}

// IsWellFormed reports whether every cell is empty, X or O.
func (that Board) IsWellFormed() bool {
	for _, cell := range that {
		if cell != EmptyCell && !cell.IsValid() {
			return false
		}
	}

	return true
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// MarshalJSON encodes the board as a 9-element array of "", "X" or "O".
func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]string, BoardSize)
	for i, cell := range that {
		cells[i] = string(cell)
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("%w: got %d", ErrMalformedBoard, len(cells))
	}

	for i, cell := range cells {
		that[i] = Symbol(cell)
	}

	return nil
}
