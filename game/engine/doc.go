// Package engine provides the core simulation for the rule-driven push puzzle.
//
// The engine package implements:
//   - Fixed-capacity object stacks per grid cell (Tile)
//   - A runtime-mutable rule table binding object kinds to properties
//   - Property-driven movement and chained push resolution
//   - A bounded circular undo history of full grid snapshots
//   - Level parsing, validation and level pack configuration
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is the complete world at an instant:
// a fixed-size array of Tiles plus the win flag. Because GameState holds no
// pointers, assigning it copies every tile, which is how history snapshots
// are taken and restored.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultLevelPack())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result := gameEngine.Move(engine.Right)
//	if result.Win {
//		gameEngine.NextLevel()
//	}
//	gameEngine.Undo()
//
// Game Rules:
//
// Nothing is hardcoded by object kind. Every move queries the RuleTable for
// the kinds that are currently You, Stop, Win and Push. All You objects move
// together; Push objects in front of them are shoved along as a chain unless
// the chain runs into a Stop object or the edge of the grid. The level is won
// while any cell holds both a You object and a Win object.
package engine
