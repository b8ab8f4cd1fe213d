package tictactoe

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Rejection reasons, in the order ValidateMove checks them.
var (
	ErrInvalidBoard   = errors.New("board contains invalid cell value")
	ErrCellNotInteger = errors.New("cell index must be an integer")
	ErrCellOutOfRange = errors.New("cell index must be between 0 and 8")
	ErrInvalidSymbol  = errors.New("symbol must be X or O")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrGameHasWinner  = errors.New("game already has a winner")
	ErrGameDrawn      = errors.New("game already ended in a draw")
)

// WinCombos lists rows top-to-bottom, columns left-to-right, then both diagonals.
// DetectWinner returns the first match in this order.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// ValidateCellIndex - checks the shape of a cell index without looking at any board.
func ValidateCellIndex(cell int) error {
	if cell < 0 || cell >= entity.BoardSize {
		return ErrCellOutOfRange
	}

	return nil
}

// ParseCellIndex - converts a raw numeric literal into a cell index.
// Integral floats such as "4.0" are accepted, anything else is ErrCellNotInteger.
func ParseCellIndex(raw string) (int, error) {
	raw = strings.TrimSpace(raw)

	if cell, err := strconv.Atoi(raw); err == nil {
		return cell, ValidateCellIndex(cell)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, ErrCellNotInteger
	}

	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, ErrCellOutOfRange
	}

	cell := int(value)

	return cell, ValidateCellIndex(cell)
}

// ValidateMove - reports the first reason the move cannot be played, nil if it can.
func ValidateMove(board entity.Board, cell int, symbol entity.Symbol) error {
	if !board.IsWellFormed() {
		return ErrInvalidBoard
	}

	if err := ValidateCellIndex(cell); err != nil {
		return err
	}

	if !symbol.IsValid() {
		return ErrInvalidSymbol
	}

	if board[cell] != entity.EmptyCell {
		return ErrCellOccupied
	}

	if _, ok := DetectWinner(board); ok {
		return ErrGameHasWinner
	}

	if DetectDraw(board) {
		return ErrGameDrawn
	}

	return nil
}

// ApplyMove - returns a new board with symbol placed on cell. The input board is never modified.
func ApplyMove(board entity.Board, cell int, symbol entity.Symbol) (entity.Board, error) {
	if err := ValidateMove(board, cell, symbol); err != nil {
		return board, err
	}

	next := board
	next[cell] = symbol

	return next, nil
}

// DetectWinner - returns the symbol holding a full line. Malformed boards have no winner.
func DetectWinner(board entity.Board) (entity.Symbol, bool) {
	if !board.IsWellFormed() {
		return entity.EmptyCell, false
	}

	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a, true
		}
	}

	return entity.EmptyCell, false
}

// DetectDraw - a full board without a winner.
func DetectDraw(board entity.Board) bool {
	if !board.IsWellFormed() {
		return false
	}

	if _, ok := DetectWinner(board); ok {
		return false
	}

	return board.IsFull()
}

func SwitchTurn(symbol entity.Symbol) entity.Symbol {
	if symbol == entity.SymbolX {
		return entity.SymbolO
	}

	return entity.SymbolX
}
