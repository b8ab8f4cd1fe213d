package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	RoomCodeLength = 6
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode - a random uppercase alphanumeric room code.
func GenerateRoomCode() (string, error) {
	var code strings.Builder
	code.Grow(RoomCodeLength)

	limit := big.NewInt(int64(len(roomCodeChars)))
	for range RoomCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}

		code.WriteByte(roomCodeChars[n.Int64()])
	}

	return code.String(), nil
}
