// Command validate provides a small CLI that validates the level pack files
// (JSON or YAML) in a directory, ../configs by default. It checks:
//   - File syntax and the pack fields (name, history_size, rules)
//   - Level shape: 33x18 cells using only the level alphabet
//   - Exactly one baba and at least one flag per level
//   - Connectivity: a flag is reachable from baba through cells that hold
//     nothing STOP under the pack's rules
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/pushrules/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePack loads and validates a single level pack file
func validatePack(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	pack, err := engine.DecodeLevelPack(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid pack file: %v", err)
		return result
	}

	if err := engine.ValidateLevelPack(pack); err != nil {
		result.fail("%v", err)
		return result
	}

	rules := pack.RuleTable()
	for i, level := range pack.Levels {
		state, _ := engine.ParseLevel(level.Layout)
		conn := validateConnectivity(&state, rules)
		if !conn.Valid {
			for _, e := range conn.Errors {
				result.fail("Level %d (%s): %s", i+1, level.Name, e)
			}
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", pack.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Levels: %d", len(pack.Levels)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Extra rules: %d", len(pack.Rules)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Undo history: %d", pack.HistoryCapacity()))
	}

	return result
}

// validateConnectivity ensures some flag is reachable from a baba using
// 4-directional movement over cells that hold nothing STOP. Pushable objects
// count as passable.
func validateConnectivity(state *engine.GameState, rules *engine.RuleTable) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	babas := state.Find(engine.Baba)
	flags := state.Find(engine.Flag)
	if len(babas) == 0 {
		result.fail("No baba found for connectivity test")
		return result
	}
	if len(flags) == 0 {
		result.fail("No flags found for connectivity test")
		return result
	}

	isPassable := func(p engine.Position) bool {
		if p.X < 0 || p.Y < 0 || p.X >= engine.LevelWidth || p.Y >= engine.LevelHeight {
			return false
		}
		for k := range state.At(p).All() {
			if rules.Has(k, engine.Stop) {
				return false
			}
		}
		return true
	}

	// Flood fill from the first baba
	var visited [engine.LevelHeight][engine.LevelWidth]bool
	queue := []engine.Position{babas[0]}
	visited[babas[0].Y][babas[0].X] = true

	steps := []engine.Position{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range steps {
			next := engine.Position{X: current.X + d.X, Y: current.Y + d.Y}
			if isPassable(next) && !visited[next.Y][next.X] {
				visited[next.Y][next.X] = true
				queue = append(queue, next)
			}
		}
	}

	for _, f := range flags {
		if visited[f.Y][f.X] {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: flag at (%d,%d) reachable", f.X, f.Y))
			return result
		}
	}

	result.fail("Connectivity failure: none of %d flags reachable from baba at (%d,%d)",
		len(flags), babas[0].X, babas[0].Y)
	return result
}

// packFiles lists the pack files in dir
func packFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

// report validates every pack in dir, printing a concise report. It returns
// false if any pack is invalid.
func report(w io.Writer, dir string) (bool, error) {
	files, err := packFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding pack files: %w", err)
	}

	allValid := true
	for _, file := range files {
		result := validatePack(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintf(w, "✅ All %d level packs are valid!\n", len(files))
	} else {
		fmt.Fprintln(w, "❌ Some level packs have errors")
	}
	return allValid, nil
}

// main validates the packs in the directory given as the first argument and
// exits with non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "Validate level pack files",
		ArgsUsage: "[dir]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := "../configs"
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			ok, err := report(cmd.Root().Writer, dir)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
