package service

import (
	"time"

	"github.com/wricardo/pushrules/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string     `json:"id"`
	PackID         string     `json:"pack_id"` // The identifier to use for session creation
	PackName       string     `json:"pack_name"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	State          *StateView `json:"state"`
}

// StateView is a snapshot of a session, safe to hand to transports
type StateView struct {
	SessionID    string `json:"session_id"`
	Pack         string `json:"pack"`
	Level        int    `json:"level"`
	LevelName    string `json:"level_name"`
	LevelCount   int    `json:"level_count"`
	Win          bool   `json:"win"`
	Moves        int    `json:"moves"`
	HistoryDepth int    `json:"history_depth"`
	HistoryCap   int    `json:"history_cap"`

	// Rows is the grid in the level alphabet, top object per cell
	Rows  []string                       `json:"rows"`
	Rules map[string][]engine.ObjectKind `json:"rules"`

	// State carries every tile stack
	State *engine.GameState `json:"state,omitempty"`
}

// ActionResponse contains the result of a single action
type ActionResponse struct {
	Result  engine.ActionResult `json:"result"`
	Message string              `json:"message"`
	Events  []GameEvent         `json:"events,omitempty"`
	State   *StateView          `json:"state"`
}

// BulkActionResult contains the result of several actions applied in order
type BulkActionResult struct {
	RequestedActions int                   `json:"requested_actions"`
	ActionsExecuted  int                   `json:"actions_executed"`
	Results          []engine.ActionResult `json:"results"`
	Events           []GameEvent           `json:"events,omitempty"`
	StopReasonCode   string                `json:"stop_reason_code,omitempty"` // victory|error
	StoppedReason    string                `json:"stopped_reason,omitempty"`
	StoppedOnAction  int                   `json:"stopped_on_action,omitempty"` // 1-based
	Truncated        bool                  `json:"truncated,omitempty"`
	Limit            int                   `json:"limit,omitempty"`
	State            *StateView            `json:"state"`
}

// GameEvent represents something notable that happened during an action
type GameEvent struct {
	Type      string    `json:"type"` // "move", "blocked", "dropped", "victory", "undo", "reset", "level_change"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     int       `json:"level"`
}

// PackInfo provides information about a level pack
type PackInfo struct {
	Filename    string `json:"filename,omitempty"`
	PackID      string `json:"pack_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Levels      int    `json:"levels"`
	HistorySize int    `json:"history_size"`
}
