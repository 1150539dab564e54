package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	GetState() *GameState
	IsVictory() bool

	// Input
	Move(dir Direction) MoveResult
	Undo() bool
	Apply(action Action) (ActionResult, error)

	// Levels
	LoadLevel(index int) error
	Reset() error
	NextLevel() (bool, error)
	PreviousLevel() (bool, error)
	LevelIndex() int
	LevelCount() int
	LevelName() string
	GetPack() *LevelPack

	// Rules
	Rules() *RuleTable
	AddRule(kind ObjectKind, property Property)

	// History
	HistoryLen() int
	HistoryCap() int
	MoveCount() int
}

// GameEngine implements the Engine interface. It owns the grid, the rule
// table and the undo history of a single game session.
type GameEngine struct {
	state   GameState
	rules   *RuleTable
	history *History
	pack    *LevelPack
	level   int
	moves   int
}

// NewEngine creates a new game engine for pack, positioned on its first level
func NewEngine(pack *LevelPack) (*GameEngine, error) {
	if err := ValidateLevelPack(pack); err != nil {
		return nil, err
	}

	e := &GameEngine{
		rules:   pack.RuleTable(),
		history: NewHistory(pack.HistoryCapacity()),
		pack:    pack,
	}
	if err := e.LoadLevel(0); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates a new game engine with the built-in levels
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultLevelPack())
	if err != nil {
		panic("engine: built-in level pack is invalid: " + err.Error())
	}
	return e
}

// GetState returns the live game state. Callers must not modify it.
func (e *GameEngine) GetState() *GameState {
	return &e.state
}

// IsVictory returns whether the current level is won
func (e *GameEngine) IsVictory() bool {
	return e.state.Win
}

// Move resolves one step of every You object. History is saved only when at
// least one mover exists.
func (e *GameEngine) Move(dir Direction) MoveResult {
	result := e.state.TryMove(dir, e.rules, func() {
		e.history.Save(e.state)
	})
	if !result.NoMovers && dir.Valid() {
		e.moves++
	}
	return result
}

// Undo restores the previous snapshot. It returns false when history is
// empty or the popped snapshot equals the current state, as it does right
// after a load or a blocked move.
func (e *GameEngine) Undo() bool {
	prev, ok := e.history.Undo()
	if !ok {
		return false
	}
	if e.moves > 0 {
		e.moves--
	}
	if prev == e.state {
		return false
	}
	e.state = prev
	return true
}

// Apply dispatches an input action. Directional actions are ignored while
// the current level is won.
func (e *GameEngine) Apply(action Action) (ActionResult, error) {
	result := ActionResult{Action: action}

	if dir, ok := action.Direction(); ok {
		if e.state.Win {
			result.Ignored = IgnoredLevelComplete
		} else {
			move := e.Move(dir)
			result.Move = &move
			if move.NoMovers {
				result.Ignored = IgnoredNoMovers
			} else {
				result.Applied = true
			}
		}
		result.Level = e.level
		result.Win = e.state.Win
		return result, nil
	}

	switch action {
	case ActionUndo:
		result.Applied = e.Undo()
		if !result.Applied {
			result.Ignored = IgnoredHistoryEmpty
		}
	case ActionReset:
		if err := e.Reset(); err != nil {
			return result, err
		}
		result.Applied = true
	case ActionNext:
		changed, err := e.NextLevel()
		if err != nil {
			return result, err
		}
		result.Applied = changed
		if !changed {
			result.Ignored = IgnoredLastLevel
		}
	case ActionPrevious:
		changed, err := e.PreviousLevel()
		if err != nil {
			return result, err
		}
		result.Applied = changed
		if !changed {
			result.Ignored = IgnoredFirstLevel
		}
	default:
		return result, fmt.Errorf("invalid action %q", action)
	}

	result.Level = e.level
	result.Win = e.state.Win
	return result, nil
}

// LoadLevel replaces the grid with level index of the pack, clears history
// and saves the fresh state as its first entry. On error the current level
// is kept.
func (e *GameEngine) LoadLevel(index int) error {
	if index < 0 || index >= len(e.pack.Levels) {
		return fmt.Errorf("%w: %d (pack %q has %d levels)", ErrLevelOutOfRange, index, e.pack.Name, len(e.pack.Levels))
	}

	state, err := ParseLevel(e.pack.Levels[index].Layout)
	if err != nil {
		return fmt.Errorf("failed to load level %d: %w", index, err)
	}

	e.state = state
	e.level = index
	e.moves = 0
	e.history.Clear()
	e.history.Save(e.state)
	return nil
}

// Reset reloads the current level
func (e *GameEngine) Reset() error {
	return e.LoadLevel(e.level)
}

// NextLevel advances to the next level. It reports false, and changes
// nothing, when already on the last level.
func (e *GameEngine) NextLevel() (bool, error) {
	if e.level+1 >= len(e.pack.Levels) {
		return false, nil
	}
	if err := e.LoadLevel(e.level + 1); err != nil {
		return false, err
	}
	return true, nil
}

// PreviousLevel goes back one level. It reports false, and changes nothing,
// when already on the first level.
func (e *GameEngine) PreviousLevel() (bool, error) {
	if e.level == 0 {
		return false, nil
	}
	if err := e.LoadLevel(e.level - 1); err != nil {
		return false, err
	}
	return true, nil
}

// LevelIndex returns the zero-based index of the current level
func (e *GameEngine) LevelIndex() int {
	return e.level
}

// LevelCount returns the number of levels in the pack
func (e *GameEngine) LevelCount() int {
	return len(e.pack.Levels)
}

// LevelName returns the name of the current level
func (e *GameEngine) LevelName() string {
	return e.pack.Levels[e.level].Name
}

// GetPack returns the level pack being played
func (e *GameEngine) GetPack() *LevelPack {
	return e.pack
}

// Rules returns the live rule table
func (e *GameEngine) Rules() *RuleTable {
	return e.rules
}

// AddRule grants property to kind. The rule applies from the next move on.
func (e *GameEngine) AddRule(kind ObjectKind, property Property) {
	e.rules.Add(kind, property)
}

// HistoryLen returns the number of snapshots available to Undo
func (e *GameEngine) HistoryLen() int {
	return e.history.Len()
}

// HistoryCap returns the undo capacity
func (e *GameEngine) HistoryCap() int {
	return e.history.Cap()
}

// MoveCount returns the number of moves made on the current level, net of undos
func (e *GameEngine) MoveCount() int {
	return e.moves
}
