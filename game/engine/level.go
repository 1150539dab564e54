package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLevel    = errors.New("invalid level")
	ErrLevelOutOfRange = errors.New("level index out of range")
)

// Level alphabet:
//
//	' ' empty   '#' wall   '0' rock   '@' baba   '$' flag
//	'A'..'I' text kinds in declaration order (A = text_baba ... I = text_stop)
const (
	charEmpty = ' '
	charWall  = '#'
	charRock  = '0'
	charBaba  = '@'
	charFlag  = '$'
	charText  = 'A'
)

var (
	charToKind [256]ObjectKind
	kindToChar [numKinds]byte
)

func init() {
	charToKind[charWall] = Wall
	charToKind[charRock] = Rock
	charToKind[charBaba] = Baba
	charToKind[charFlag] = Flag

	c := byte(charText)
	for _, k := range TextKinds() {
		charToKind[c] = k
		c++
	}

	kindToChar[Empty] = charEmpty
	for i, k := range charToKind {
		if k != Empty {
			kindToChar[k] = byte(i)
		}
	}
}

// KindForChar maps a level character to its object kind; ' ' maps to Empty
func KindForChar(c byte) (ObjectKind, bool) {
	if c == charEmpty {
		return Empty, true
	}
	k := charToKind[c]
	return k, k != Empty
}

// CharForKind returns the level character of a kind
func CharForKind(k ObjectKind) byte {
	if !k.Valid() {
		return '?'
	}
	return kindToChar[k]
}

// ParseLevel builds a GameState from a character grid. The layout must be
// exactly LevelHeight rows of LevelWidth characters, contain exactly one
// baba and at least one flag, and use only the level alphabet.
func ParseLevel(layout []string) (GameState, error) {
	var gs GameState

	if len(layout) != LevelHeight {
		return gs, fmt.Errorf("%w: layout must have %d rows, got %d", ErrInvalidLevel, LevelHeight, len(layout))
	}

	movers := 0
	goals := 0
	for y, row := range layout {
		if len(row) != LevelWidth {
			return gs, fmt.Errorf("%w: row %d must have %d characters, got %d",
				ErrInvalidLevel, y+1, LevelWidth, len(row))
		}
		for x := 0; x < LevelWidth; x++ {
			kind, ok := KindForChar(row[x])
			if !ok {
				return gs, fmt.Errorf("%w: invalid character '%c' at row %d, col %d",
					ErrInvalidLevel, row[x], y+1, x+1)
			}
			switch kind {
			case Empty:
				continue
			case Baba:
				movers++
			case Flag:
				goals++
			}
			gs.Tiles[y][x].Push(kind)
		}
	}

	if movers != 1 {
		return gs, fmt.Errorf("%w: layout must contain exactly one '%c', got %d", ErrInvalidLevel, charBaba, movers)
	}
	if goals == 0 {
		return gs, fmt.Errorf("%w: layout must contain at least one '%c'", ErrInvalidLevel, charFlag)
	}
	return gs, nil
}

// EncodeLevel renders gs back into level characters, showing the top object
// of each cell
func EncodeLevel(gs *GameState) []string {
	rows := make([]string, LevelHeight)
	buf := make([]byte, LevelWidth)
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			buf[x] = CharForKind(gs.Tiles[y][x].Top())
		}
		rows[y] = string(buf)
	}
	return rows
}
