// Package solver searches for move sequences that win a level.
//
// The search is breadth-first over copies of engine.GameState. It drives
// the same resolver the engine uses, without history, so any solution it
// returns can be replayed move by move against a live session.
package solver

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/pushrules/game/engine"
)

var (
	// ErrNoSolution is returned when the search space (or its bounds) is
	// exhausted without reaching a winning state
	ErrNoSolution = errors.New("no solution found")
)

const (
	DefaultMaxDepth  = 200
	DefaultMaxStates = 20000

	// cancellation is checked once per this many expanded states
	checkEvery = 256
)

// Options bound the search
type Options struct {
	// MaxDepth is the longest move sequence considered
	MaxDepth int
	// MaxStates is the number of distinct states visited before giving up
	MaxStates int
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxStates <= 0 {
		o.MaxStates = DefaultMaxStates
	}
	return o
}

// Solution is a shortest winning move sequence
type Solution struct {
	Moves    []engine.Direction `json:"moves"`
	Explored int                `json:"explored"`
	// Truncated is set when MaxStates or MaxDepth cut the search short
	Truncated bool `json:"truncated,omitempty"`
}

// Actions returns the moves as engine actions
func (s *Solution) Actions() []engine.Action {
	actions := make([]engine.Action, 0, len(s.Moves))
	for _, d := range s.Moves {
		actions = append(actions, engine.Action(d.String()))
	}
	return actions
}

// node is a visited state: the move that produced it and its parent index
type node struct {
	parent int
	dir    engine.Direction
	depth  int
}

var directions = []engine.Direction{engine.Up, engine.Down, engine.Left, engine.Right}

// Solve finds the shortest move sequence from start to a winning state under
// rules. A start state that is already won yields an empty solution.
//
// rules is only read. On failure the returned Solution carries the number
// of explored states alongside ErrNoSolution or the context's error.
func Solve(ctx context.Context, start engine.GameState, rules *engine.RuleTable, opts Options) (*Solution, error) {
	opts = opts.withDefaults()

	if start.Win {
		return &Solution{Moves: []engine.Direction{}}, nil
	}

	visited := map[engine.GameState]struct{}{start: {}}
	nodes := []node{{parent: -1}}
	frontier := []engine.GameState{start}
	frontierIdx := []int{0}
	truncated := false

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= opts.MaxDepth {
			truncated = true
			break
		}

		var next []engine.GameState
		var nextIdx []int
		for i := range frontier {
			if i%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return &Solution{Explored: len(visited)}, err
				}
			}

			for _, dir := range directions {
				child := frontier[i]
				result := child.TryMove(dir, rules, nil)
				if result.NoMovers {
					// Nothing can ever move from here
					break
				}
				if _, seen := visited[child]; seen {
					continue
				}

				visited[child] = struct{}{}
				nodes = append(nodes, node{parent: frontierIdx[i], dir: dir, depth: depth + 1})
				if child.Win {
					sol := &Solution{
						Moves:    backtrack(nodes, len(nodes)-1),
						Explored: len(visited),
					}
					log.Debug().
						Int("moves", len(sol.Moves)).
						Int("explored", sol.Explored).
						Msg("Solution found")
					return sol, nil
				}

				if len(visited) >= opts.MaxStates {
					truncated = true
					break
				}
				next = append(next, child)
				nextIdx = append(nextIdx, len(nodes)-1)
			}
			if truncated {
				break
			}
		}
		if truncated {
			break
		}
		frontier, frontierIdx = next, nextIdx
	}

	log.Debug().
		Int("explored", len(visited)).
		Bool("truncated", truncated).
		Msg("Search exhausted")
	return &Solution{Explored: len(visited), Truncated: truncated}, ErrNoSolution
}

// backtrack rebuilds the move sequence ending at node i
func backtrack(nodes []node, i int) []engine.Direction {
	moves := make([]engine.Direction, nodes[i].depth)
	for ; nodes[i].parent >= 0; i = nodes[i].parent {
		moves[nodes[i].depth-1] = nodes[i].dir
	}
	return moves
}

// Verify replays moves from start and reports whether they end in a win
func Verify(start engine.GameState, rules *engine.RuleTable, moves []engine.Direction) bool {
	state := start
	for _, dir := range moves {
		if state.Win {
			return false
		}
		state.TryMove(dir, rules, nil)
	}
	return state.Win
}
