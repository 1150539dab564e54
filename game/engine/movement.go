package engine

import (
	"cmp"
	"slices"
)

// FindMovers returns every object whose kind is in you, ordered so that the
// movers farthest along dir come first. Ties keep row-major scan order.
func (gs *GameState) FindMovers(you []ObjectKind, dir Direction) []Mover {
	var movers []Mover
	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			for k := range gs.Tiles[y][x].All() {
				if slices.Contains(you, k) {
					movers = append(movers, Mover{Pos: Position{X: x, Y: y}, Kind: k})
				}
			}
		}
	}

	// The leading mover must vacate its cell before the one behind it moves in
	proj := func(p Position) int { return p.X*dir.DX + p.Y*dir.DY }
	slices.SortStableFunc(movers, func(a, b Mover) int {
		return cmp.Compare(proj(b.Pos), proj(a.Pos))
	})
	return movers
}

// TryMove moves every You object one step in dir, pushing chains of Push
// objects ahead of them, and then recomputes the win flag.
//
// beforeMutate, when non-nil, is called exactly once after at least one mover
// has been found and before anything is changed; the engine uses it to
// snapshot history. When there are no movers the state is left untouched and
// beforeMutate is not called. Invalid directions are ignored.
func (gs *GameState) TryMove(dir Direction, rules *RuleTable, beforeMutate func()) MoveResult {
	if !dir.Valid() {
		return MoveResult{Win: gs.Win}
	}

	you := rules.Get(You)
	stop := rules.Get(Stop)
	push := rules.Get(Push)

	movers := gs.FindMovers(you, dir)
	if len(movers) == 0 {
		return MoveResult{NoMovers: true, Win: gs.Win}
	}

	if beforeMutate != nil {
		beforeMutate()
	}

	result := MoveResult{Movers: len(movers)}
	for _, m := range movers {
		gs.step(m, dir, stop, push, &result)
	}

	gs.Win = gs.CheckWin(rules)
	result.Win = gs.Win
	return result
}

// step moves one mover, pushing the chain ahead of it. A mover no longer on
// its cell counts as blocked and leaves the grid untouched.
func (gs *GameState) step(m Mover, dir Direction, stop, push []ObjectKind, result *MoveResult) {
	if !gs.At(m.Pos).Contains(m.Kind) {
		result.Blocked++
		return
	}

	dest := m.Pos.Add(dir)
	if !InBounds(dest) || gs.At(dest).ContainsAny(stop) {
		result.Blocked++
		return
	}

	// Find the first cell past the chain of all-pushable tiles
	end := dest
	for InBounds(end) && allPushable(gs.At(end), push) {
		end = end.Add(dir)
	}
	if !InBounds(end) || gs.At(end).ContainsAny(stop) {
		result.Blocked++
		return
	}

	// Shift back to front so nothing is overwritten before it is read
	for end != dest {
		prev := Position{X: end.X - dir.DX, Y: end.Y - dir.DY}
		pushed, dropped := shiftPushable(gs.At(prev), gs.At(end), push)
		result.Pushed += pushed
		result.Dropped += dropped
		end = prev
	}

	gs.At(m.Pos).Remove(m.Kind)
	if !gs.At(dest).Push(m.Kind) {
		result.Dropped++
	}
	result.Moved++
}

// allPushable reports whether t is non-empty and every object on it is Push
func allPushable(t *Tile, push []ObjectKind) bool {
	if t.IsEmpty() {
		return false
	}
	for k := range t.All() {
		if !slices.Contains(push, k) {
			return false
		}
	}
	return true
}

// shiftPushable moves every Push object from src onto dst, in stack order.
// Objects that do not fit on dst are dropped.
func shiftPushable(src, dst *Tile, push []ObjectKind) (pushed, dropped int) {
	var moving []ObjectKind
	for k := range src.All() {
		if slices.Contains(push, k) {
			moving = append(moving, k)
		}
	}
	for _, k := range moving {
		src.Remove(k)
		if dst.Push(k) {
			pushed++
		} else {
			dropped++
		}
	}
	return pushed, dropped
}
