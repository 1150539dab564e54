package engine

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Tile is the ordered stack of objects occupying one grid cell.
// Empty is never stored; an empty tile has a zero count.
type Tile struct {
	objects [MaxObjectsPerTile]ObjectKind
	count   uint8
}

// Push appends kind on top of the stack. When the tile is full the push is
// dropped and Push returns false.
func (t *Tile) Push(kind ObjectKind) bool {
	if kind == Empty || int(t.count) >= MaxObjectsPerTile {
		return false
	}
	t.objects[t.count] = kind
	t.count++
	return true
}

// Pop removes and returns the most recently pushed kind.
// Popping an empty tile is a programming error.
func (t *Tile) Pop() ObjectKind {
	if t.count == 0 {
		panic("engine: pop from empty tile")
	}
	t.count--
	kind := t.objects[t.count]
	t.objects[t.count] = Empty
	return kind
}

// Remove deletes the first occurrence of kind, shifting later entries down
func (t *Tile) Remove(kind ObjectKind) bool {
	n := int(t.count)
	for i := 0; i < n; i++ {
		if t.objects[i] != kind {
			continue
		}
		copy(t.objects[i:n-1], t.objects[i+1:n])
		t.objects[n-1] = Empty
		t.count--
		return true
	}
	return false
}

// Clear empties the tile
func (t *Tile) Clear() {
	*t = Tile{}
}

// IsEmpty reports whether the tile holds no objects
func (t Tile) IsEmpty() bool {
	return t.count == 0
}

// Len returns the number of objects on the tile
func (t Tile) Len() int {
	return int(t.count)
}

// IsFull reports whether another push would be dropped
func (t Tile) IsFull() bool {
	return int(t.count) >= MaxObjectsPerTile
}

// Top returns the most recently pushed kind, or Empty
func (t Tile) Top() ObjectKind {
	if t.count == 0 {
		return Empty
	}
	return t.objects[t.count-1]
}

// Contains reports whether kind is on the tile
func (t Tile) Contains(kind ObjectKind) bool {
	for i := 0; i < int(t.count); i++ {
		if t.objects[i] == kind {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any of kinds is on the tile
func (t Tile) ContainsAny(kinds []ObjectKind) bool {
	for i := 0; i < int(t.count); i++ {
		if slices.Contains(kinds, t.objects[i]) {
			return true
		}
	}
	return false
}

// All iterates the objects bottom to top, in insertion order
func (t *Tile) All() iter.Seq[ObjectKind] {
	return func(yield func(ObjectKind) bool) {
		for i := 0; i < int(t.count); i++ {
			if !yield(t.objects[i]) {
				return
			}
		}
	}
}

// Objects returns a copy of the stack contents
func (t Tile) Objects() []ObjectKind {
	return slices.Clone(t.objects[:t.count])
}

// MarshalJSON encodes the tile as a list of kind names
func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Objects())
}

// UnmarshalJSON decodes a list of kind names
func (t *Tile) UnmarshalJSON(data []byte) error {
	var kinds []ObjectKind
	if err := json.Unmarshal(data, &kinds); err != nil {
		return err
	}
	if len(kinds) > MaxObjectsPerTile {
		return fmt.Errorf("tile holds at most %d objects, got %d", MaxObjectsPerTile, len(kinds))
	}
	t.Clear()
	for _, k := range kinds {
		if k == Empty {
			return fmt.Errorf("tile cannot hold %s", Empty)
		}
		t.Push(k)
	}
	return nil
}
