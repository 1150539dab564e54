package engine

import (
	"encoding/json"
	"fmt"
)

// GameState is the complete world at an instant. It contains no pointers, so
// assigning a GameState copies every tile.
type GameState struct {
	Tiles [LevelHeight][LevelWidth]Tile
	Win   bool
}

// InBounds reports whether p lies on the grid
func InBounds(p Position) bool {
	return p.X >= 0 && p.X < LevelWidth && p.Y >= 0 && p.Y < LevelHeight
}

// At returns the tile at p. p must be in bounds.
func (gs *GameState) At(p Position) *Tile {
	return &gs.Tiles[p.Y][p.X]
}

// Place pushes kind onto the tile at p, reporting whether it was stored
func (gs *GameState) Place(p Position, kinds ...ObjectKind) bool {
	if !InBounds(p) {
		return false
	}
	ok := true
	for _, k := range kinds {
		ok = gs.At(p).Push(k) && ok
	}
	return ok
}

// Find returns every position holding kind, in row-major order
func (gs *GameState) Find(kind ObjectKind) []Position {
	var found []Position
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			if gs.Tiles[y][x].Contains(kind) {
				found = append(found, Position{X: x, Y: y})
			}
		}
	}
	return found
}

// CountKinds returns the multiset of objects on the grid
func (gs *GameState) CountKinds() map[ObjectKind]int {
	counts := make(map[ObjectKind]int)
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			for k := range gs.Tiles[y][x].All() {
				counts[k]++
			}
		}
	}
	return counts
}

// ObjectCount returns the total number of objects on the grid
func (gs *GameState) ObjectCount() int {
	n := 0
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			n += gs.Tiles[y][x].Len()
		}
	}
	return n
}

// CheckWin reports whether any single cell holds both a You kind and a Win kind
func (gs *GameState) CheckWin(rules *RuleTable) bool {
	you := rules.Get(You)
	win := rules.Get(Win)
	if len(you) == 0 || len(win) == 0 {
		return false
	}
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			t := &gs.Tiles[y][x]
			if t.ContainsAny(you) && t.ContainsAny(win) {
				return true
			}
		}
	}
	return false
}

// stateJSON is the wire form of GameState
type stateJSON struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Tiles  [][]Tile `json:"tiles"`
	Win    bool     `json:"win"`
}

// MarshalJSON encodes the grid as rows of tiles
func (gs GameState) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Width:  LevelWidth,
		Height: LevelHeight,
		Tiles:  make([][]Tile, LevelHeight),
		Win:    gs.Win,
	}
	for y := range gs.Tiles {
		out.Tiles[y] = gs.Tiles[y][:]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON
func (gs *GameState) UnmarshalJSON(data []byte) error {
	var in stateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Tiles) != LevelHeight {
		return fmt.Errorf("state must have %d rows, got %d", LevelHeight, len(in.Tiles))
	}
	var next GameState
	for y, row := range in.Tiles {
		if len(row) != LevelWidth {
			return fmt.Errorf("state row %d must have %d tiles, got %d", y, LevelWidth, len(row))
		}
		copy(next.Tiles[y][:], row)
	}
	next.Win = in.Win
	*gs = next
	return nil
}
