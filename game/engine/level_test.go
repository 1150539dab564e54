package engine

import (
	"errors"
	"strings"
	"testing"
)

// blankLayout returns a walled level with baba at (1,1) and a flag at (3,1)
func blankLayout() []string {
	rows := make([]string, LevelHeight)
	rows[0] = strings.Repeat("#", LevelWidth)
	rows[LevelHeight-1] = rows[0]
	for y := 1; y < LevelHeight-1; y++ {
		rows[y] = "#" + strings.Repeat(" ", LevelWidth-2) + "#"
	}
	rows[1] = "#@ $" + strings.Repeat(" ", LevelWidth-5) + "#"
	return rows
}

func TestParseDefaultLevels(t *testing.T) {
	for i, level := range DefaultLevelPack().Levels {
		gs, err := ParseLevel(level.Layout)
		if err != nil {
			t.Fatalf("Level %d failed to parse: %v", i, err)
		}
		if got := len(gs.Find(Baba)); got != 1 {
			t.Errorf("Level %d: expected 1 baba, got %d", i, got)
		}
		if gs.Win {
			t.Errorf("Level %d should not start won", i)
		}
	}
}

func TestParseLevelAlphabet(t *testing.T) {
	layout := blankLayout()
	layout[2] = "#0ABCDEFGHI" + strings.Repeat(" ", LevelWidth-12) + "#"

	gs, err := ParseLevel(layout)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	expected := map[Position]ObjectKind{
		{X: 0, Y: 0}:  Wall,
		{X: 1, Y: 1}:  Baba,
		{X: 3, Y: 1}:  Flag,
		{X: 1, Y: 2}:  Rock,
		{X: 2, Y: 2}:  TextBaba,
		{X: 3, Y: 2}:  TextRock,
		{X: 4, Y: 2}:  TextWall,
		{X: 5, Y: 2}:  TextFlag,
		{X: 6, Y: 2}:  TextIs,
		{X: 7, Y: 2}:  TextYou,
		{X: 8, Y: 2}:  TextWin,
		{X: 9, Y: 2}:  TextPush,
		{X: 10, Y: 2}: TextStop,
	}
	for pos, kind := range expected {
		tile := gs.At(pos)
		if tile.Len() != 1 || tile.Top() != kind {
			t.Errorf("Expected %s at (%d,%d), got %v", kind, pos.X, pos.Y, tile.Objects())
		}
	}
	if !gs.At(Position{X: 2, Y: 1}).IsEmpty() {
		t.Error("Space should parse as an empty tile")
	}
}

func TestParseLevelErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]string) []string
		substr string
	}{
		{"too few rows", func(l []string) []string { return l[:LevelHeight-1] }, "rows"},
		{"short row", func(l []string) []string { l[3] = "#  #"; return l }, "row 4"},
		{"unknown character", func(l []string) []string {
			l[2] = "#?" + strings.Repeat(" ", LevelWidth-3) + "#"
			return l
		}, "invalid character '?'"},
		{"no mover", func(l []string) []string {
			l[1] = strings.Replace(l[1], "@", " ", 1)
			return l
		}, "exactly one '@'"},
		{"two movers", func(l []string) []string {
			l[2] = "#@" + strings.Repeat(" ", LevelWidth-3) + "#"
			return l
		}, "exactly one '@'"},
		{"no goal", func(l []string) []string {
			l[1] = strings.Replace(l[1], "$", " ", 1)
			return l
		}, "at least one '$'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLevel(tt.mutate(blankLayout()))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("Expected ErrInvalidLevel, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Expected error containing %q, got %v", tt.substr, err)
			}
		})
	}
}

func TestEncodeLevelRoundTrip(t *testing.T) {
	for i, level := range DefaultLevelPack().Levels {
		gs, err := ParseLevel(level.Layout)
		if err != nil {
			t.Fatalf("Level %d failed to parse: %v", i, err)
		}
		encoded := EncodeLevel(&gs)
		for y := range encoded {
			if encoded[y] != level.Layout[y] {
				t.Errorf("Level %d row %d: expected %q, got %q", i, y, level.Layout[y], encoded[y])
			}
		}
	}
}

func TestEncodeLevelShowsTopObject(t *testing.T) {
	gs, err := ParseLevel(blankLayout())
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	gs.Place(Position{X: 3, Y: 1}, Baba)

	if got := EncodeLevel(&gs)[1][3]; got != '@' {
		t.Errorf("Expected '@' on top of the flag, got %q", got)
	}
}

func TestCharKindMapping(t *testing.T) {
	for _, k := range AllKinds() {
		c := CharForKind(k)
		back, ok := KindForChar(c)
		if !ok || back != k {
			t.Errorf("Kind %s maps to %q which maps back to %s", k, c, back)
		}
	}
	if _, ok := KindForChar('z'); ok {
		t.Error("'z' should not be in the alphabet")
	}
}
