package engine

import (
	"fmt"
	"strings"
)

// Action is a discrete input event delivered to a session
type Action string

const (
	ActionUp       Action = "up"
	ActionDown     Action = "down"
	ActionLeft     Action = "left"
	ActionRight    Action = "right"
	ActionUndo     Action = "undo"
	ActionReset    Action = "reset"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
)

// Reasons an action was accepted but had no effect
const (
	IgnoredLevelComplete = "level_complete"
	IgnoredNoMovers      = "no_movers"
	IgnoredHistoryEmpty  = "history_empty"
	IgnoredLastLevel     = "last_level"
	IgnoredFirstLevel    = "first_level"
)

// ParseAction accepts action names as well as the keyboard shortcuts
// w/a/s/d (move), x (undo), r (reset), n (next) and p (previous)
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w":
		return ActionUp, nil
	case "down", "s":
		return ActionDown, nil
	case "left", "a":
		return ActionLeft, nil
	case "right", "d":
		return ActionRight, nil
	case "undo", "x":
		return ActionUndo, nil
	case "reset", "r":
		return ActionReset, nil
	case "next", "n":
		return ActionNext, nil
	case "previous", "prev", "p":
		return ActionPrevious, nil
	}
	return "", fmt.Errorf("invalid action %q", s)
}

// Direction returns the move direction of a directional action
func (a Action) Direction() (Direction, bool) {
	switch a {
	case ActionUp:
		return Up, true
	case ActionDown:
		return Down, true
	case ActionLeft:
		return Left, true
	case ActionRight:
		return Right, true
	}
	return Direction{}, false
}

// ActionResult describes what a single action did
type ActionResult struct {
	Action  Action      `json:"action"`
	Applied bool        `json:"applied"`
	Ignored string      `json:"ignored,omitempty"`
	Move    *MoveResult `json:"move,omitempty"`
	Level   int         `json:"level"`
	Win     bool        `json:"win"`
}
