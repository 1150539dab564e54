package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// NearestWith finds the position closest to from whose tile holds any of kinds.
// It returns false when no such tile exists.
func NearestWith(gs *GameState, from Position, kinds []ObjectKind) (Position, int, bool) {
	minDistance := -1
	var nearest Position

	for y := 0; y < LevelHeight; y++ {
		for x := 0; x < LevelWidth; x++ {
			if !gs.Tiles[y][x].ContainsAny(kinds) {
				continue
			}
			pos := Position{X: x, Y: y}
			distance := ManhattanDistance(from, pos)
			if minDistance == -1 || distance < minDistance {
				minDistance = distance
				nearest = pos
			}
		}
	}

	return nearest, minDistance, minDistance != -1
}

// RuleSets returns the current kinds for every property, keyed by property name
func RuleSets(rules *RuleTable) map[string][]ObjectKind {
	sets := make(map[string][]ObjectKind, numProperties)
	for _, p := range AllProperties() {
		sets[p.String()] = rules.Get(p)
	}
	return sets
}
