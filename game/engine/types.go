package engine

import (
	"fmt"
	"strings"
)

const (
	// Grid dimensions shared by every level
	LevelWidth  = 33
	LevelHeight = 18

	// MaxObjectsPerTile is the soft cap of a Tile; pushes beyond it are dropped
	MaxObjectsPerTile = 5

	// MaxHistory is the default number of undo snapshots kept
	MaxHistory = 512

	// Validation constants
	MinHistory    = 1
	MaxHistoryCap = 4096
	MaxBulkMoves  = 100
)

// ObjectKind identifies what occupies a tile slot
type ObjectKind uint8

const (
	Empty ObjectKind = iota
	Wall
	Baba
	Flag
	Rock

	TextBaba
	TextRock
	TextWall
	TextFlag
	TextIs
	TextYou
	TextWin
	TextPush
	TextStop

	numKinds
)

var kindNames = [numKinds]string{
	Empty:    "empty",
	Wall:     "wall",
	Baba:     "baba",
	Flag:     "flag",
	Rock:     "rock",
	TextBaba: "text_baba",
	TextRock: "text_rock",
	TextWall: "text_wall",
	TextFlag: "text_flag",
	TextIs:   "text_is",
	TextYou:  "text_you",
	TextWin:  "text_win",
	TextPush: "text_push",
	TextStop: "text_stop",
}

// AllKinds returns every non-empty object kind in enum order
func AllKinds() []ObjectKind {
	kinds := make([]ObjectKind, 0, numKinds-1)
	for k := Wall; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// TextKinds returns the kinds used to spell rules inside the grid
func TextKinds() []ObjectKind {
	kinds := make([]ObjectKind, 0, numKinds-TextBaba)
	for k := TextBaba; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// IsText reports whether the kind is a rule word
func (k ObjectKind) IsText() bool {
	return k >= TextBaba && k < numKinds
}

// Valid reports whether k is a known kind
func (k ObjectKind) Valid() bool {
	return k < numKinds
}

// Word returns the rule word a text kind spells, or "" for other kinds
func (k ObjectKind) Word() string {
	if !k.IsText() {
		return ""
	}
	return strings.TrimPrefix(kindNames[k], "text_")
}

func (k ObjectKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind as its name
func (k ObjectKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown object kind %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText decodes a kind name
func (k *ObjectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseObjectKind parses a kind name (case-insensitive)
func ParseObjectKind(name string) (ObjectKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return ObjectKind(k), nil
		}
	}
	return Empty, fmt.Errorf("unknown object kind %q", name)
}

// Property is a capability a rule binds to an object kind
type Property uint8

const (
	You Property = iota
	Stop
	Win
	Push

	numProperties
)

var propertyNames = [numProperties]string{
	You:  "you",
	Stop: "stop",
	Win:  "win",
	Push: "push",
}

// AllProperties returns every property in enum order
func AllProperties() []Property {
	return []Property{You, Stop, Win, Push}
}

func (p Property) String() string {
	if p >= numProperties {
		return fmt.Sprintf("property(%d)", uint8(p))
	}
	return propertyNames[p]
}

// MarshalText encodes the property as its name
func (p Property) MarshalText() ([]byte, error) {
	if p >= numProperties {
		return nil, fmt.Errorf("unknown property %d", uint8(p))
	}
	return []byte(propertyNames[p]), nil
}

// UnmarshalText decodes a property name
func (p *Property) UnmarshalText(text []byte) error {
	parsed, err := ParseProperty(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseProperty parses a property name (case-insensitive)
func ParseProperty(name string) (Property, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range propertyNames {
		if n == name {
			return Property(p), nil
		}
	}
	return You, fmt.Errorf("unknown property %q", name)
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by a direction
func (p Position) Add(d Direction) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

// Direction is a unit step in one of the four grid directions
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}
)

// Valid reports whether d is one of the four unit directions
func (d Direction) Valid() bool {
	return abs(d.DX)+abs(d.DY) == 1
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("(%d,%d)", d.DX, d.DY)
}

// ParseDirection parses "up", "down", "left" or "right"
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Direction{}, fmt.Errorf("invalid direction %q", name)
}

// Mover is a You object found during move resolution
type Mover struct {
	Pos  Position   `json:"pos"`
	Kind ObjectKind `json:"kind"`
}

// MoveResult summarizes one call to TryMove
type MoveResult struct {
	// NoMovers is set when nothing held the You property; the state was not touched
	NoMovers bool `json:"no_movers"`
	Movers   int  `json:"movers"`
	Moved    int  `json:"moved"`
	Blocked  int  `json:"blocked"`
	// Pushed counts objects shifted one cell by push chains
	Pushed int `json:"pushed"`
	// Dropped counts objects lost because their destination tile was full
	Dropped int  `json:"dropped"`
	Win     bool `json:"win"`
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
