package models

import "fmt"

// BoardSize is the edge length of a go board.
type BoardSize int

const (
	Board9x9   BoardSize = 9
	Board13x13 BoardSize = 13
	Board19x19 BoardSize = 19
)

// BoardSizes lists every size a room can be opened with.
var BoardSizes = []BoardSize{Board9x9, Board13x13, Board19x19}

// Valid reports whether b is one of BoardSizes.
func (b BoardSize) Valid() bool {
	for _, s := range BoardSizes {
		if b == s {
			return true
		}
	}
	return false
}

func (b BoardSize) String() string {
	return fmt.Sprintf("%dx%d", int(b), int(b))
}
