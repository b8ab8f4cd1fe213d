package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidMove         = errors.New("invalid move")
	ErrRoomNotFound        = errors.New("room not found")
	ErrGameNotFound        = errors.New("game not found")
	ErrUnauthorized        = errors.New("you are not authorized to perform this action")
	ErrNotYourTurn         = errors.New("it's not your turn")
	ErrGameAlreadyFinished = errors.New("game is already finished")

	ErrUnauthenticated = errors.New("you must be authenticated to perform this action")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserNotFound    = errors.New("user not found")
	ErrRoomFull        = errors.New("room is full")
	ErrNotFound        = errors.New("not found")
)

const (
	CodeInvalidMove         = "INVALID_MOVE"
	CodeRoomNotFound        = "ROOM_NOT_FOUND"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeGameAlreadyFinished = "GAME_ALREADY_FINISHED"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeRoomFull            = "ROOM_FULL"
	CodeInternal            = "INTERNAL_ERROR"
)

// codes is ordered: the first sentinel found in an error chain decides its code.
var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidMove, CodeInvalidMove},
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrGameNotFound, CodeGameNotFound},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrNotYourTurn, CodeNotYourTurn},
	{ErrGameAlreadyFinished, CodeGameAlreadyFinished},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrRoomFull, CodeRoomFull},
}

// Code - returns the stable client-facing code of err, CodeInternal for anything outside the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return CodeInternal
}

// IsExpected - reports whether err is a user-facing outcome rather than an internal failure.
func IsExpected(err error) bool {
	return err != nil && Code(err) != CodeInternal
}

var statuses = map[string]int{
	CodeInvalidMove:         http.StatusUnprocessableEntity,
	CodeRoomNotFound:        http.StatusNotFound,
	CodeGameNotFound:        http.StatusNotFound,
	CodeUnauthorized:        http.StatusForbidden,
	CodeNotYourTurn:         http.StatusConflict,
	CodeGameAlreadyFinished: http.StatusConflict,
	CodeUnauthenticated:     http.StatusUnauthorized,
	CodeInvalidInput:        http.StatusBadRequest,
	CodeUserNotFound:        http.StatusNotFound,
	CodeRoomFull:            http.StatusConflict,
}

// HTTPStatus - the status transports answer with for a code.
func HTTPStatus(code string) int {
	if status, ok := statuses[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
