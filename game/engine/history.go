package engine

// History is a fixed-capacity ring buffer of GameState snapshots. Once full,
// each Save silently overwrites the oldest snapshot.
type History struct {
	entries []GameState
	start   int // oldest saved
	count   int // how many valid snapshots
}

// NewHistory preallocates a history holding up to capacity snapshots.
// Capacities below one are raised to one.
func NewHistory(capacity int) *History {
	if capacity < MinHistory {
		capacity = MinHistory
	}
	return &History{entries: make([]GameState, capacity)}
}

// Save records a copy of gs as the newest snapshot
func (h *History) Save(gs GameState) {
	index := (h.start + h.count) % len(h.entries)
	h.entries[index] = gs

	if h.count < len(h.entries) {
		h.count++
	} else {
		h.start = (h.start + 1) % len(h.entries)
	}
}

// Undo removes and returns the newest snapshot. It returns false when the
// history is empty.
func (h *History) Undo() (GameState, bool) {
	if h.count == 0 {
		return GameState{}, false
	}
	index := (h.start + h.count - 1) % len(h.entries)
	h.count--
	return h.entries[index], true
}

// Peek returns the newest snapshot without removing it
func (h *History) Peek() (GameState, bool) {
	if h.count == 0 {
		return GameState{}, false
	}
	return h.entries[(h.start+h.count-1)%len(h.entries)], true
}

// Clear forgets every snapshot without releasing the buffer
func (h *History) Clear() {
	h.start = 0
	h.count = 0
}

// Len returns the number of snapshots available to Undo
func (h *History) Len() int {
	return h.count
}

// Cap returns the fixed capacity
func (h *History) Cap() int {
	return len(h.entries)
}
