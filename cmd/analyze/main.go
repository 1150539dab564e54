// Command analyze prints quick, human-readable heuristics about the level
// packs in the project's configs directory. For every level it summarizes
// object counts, where baba starts, how far the nearest flag is, and, with
// --solve, the length of the shortest solution.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/solver"
)

// LevelReport holds the heuristics computed for one level
type LevelReport struct {
	Name   string
	Counts map[engine.ObjectKind]int
	Text   int
	Baba   engine.Position
	// NearestFlag is the Manhattan distance from baba to the closest flag
	NearestFlag int

	// Solution is set when solving was requested and succeeded
	Solution *solver.Solution
	SolveErr error
}

// analyzeLevel computes the report of one level. A zero timeout skips solving.
func analyzeLevel(ctx context.Context, level engine.LevelConfig, rules *engine.RuleTable, timeout time.Duration) (LevelReport, error) {
	report := LevelReport{Name: level.Name}

	state, err := engine.ParseLevel(level.Layout)
	if err != nil {
		return report, err
	}

	report.Counts = state.CountKinds()
	for k, n := range report.Counts {
		if k.IsText() {
			report.Text += n
		}
	}

	report.Baba = state.Find(engine.Baba)[0]
	_, report.NearestFlag, _ = engine.NearestWith(&state, report.Baba, []engine.ObjectKind{engine.Flag})

	if timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		report.Solution, report.SolveErr = solver.Solve(ctx, state, rules, solver.Options{})
	}
	return report, nil
}

// analyzePack loads a pack file and prints the report of every level
func analyzePack(ctx context.Context, w io.Writer, path string, timeout time.Duration) error {
	pack, err := engine.LoadLevelPack(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Name: %s\n", pack.Name)
	fmt.Fprintf(w, "Levels: %d\n", len(pack.Levels))
	fmt.Fprintf(w, "Undo history: %d\n", pack.HistoryCapacity())

	rules := pack.RuleTable()
	for i, level := range pack.Levels {
		report, err := analyzeLevel(ctx, level, rules, timeout)
		if err != nil {
			return fmt.Errorf("level %d: %w", i+1, err)
		}
		printReport(w, i, report)
	}
	return nil
}

func printReport(w io.Writer, index int, r LevelReport) {
	fmt.Fprintf(w, "\n-- Level %d: %s\n", index+1, r.Name)
	fmt.Fprintf(w, "Baba Position: (%d, %d)\n", r.Baba.X, r.Baba.Y)
	fmt.Fprintf(w, "Walls: %d, Rocks: %d, Flags: %d, Text: %d\n",
		r.Counts[engine.Wall], r.Counts[engine.Rock], r.Counts[engine.Flag], r.Text)
	fmt.Fprintf(w, "Nearest Flag: %d steps (Manhattan)\n", r.NearestFlag)

	switch {
	case r.Solution != nil && r.SolveErr == nil:
		fmt.Fprintf(w, "✅ Solvable in %d moves (%d states explored)\n", len(r.Solution.Moves), r.Solution.Explored)
	case errors.Is(r.SolveErr, solver.ErrNoSolution) && r.Solution != nil && !r.Solution.Truncated:
		fmt.Fprintf(w, "⚠️  CRITICAL: level cannot be won (%d states explored)\n", r.Solution.Explored)
	case r.SolveErr != nil:
		fmt.Fprintf(w, "⚠️  WARNING: no solution within search bounds: %v\n", r.SolveErr)
	}
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Print heuristics about level packs",
		ArgsUsage: "[pack files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "configs",
				Usage: "Directory scanned when no files are given",
			},
			&cli.BoolFlag{
				Name:  "solve",
				Usage: "Search for the shortest solution of every level",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Solver time limit per level",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
					matches, err := filepath.Glob(filepath.Join(cmd.String("dir"), pattern))
					if err != nil {
						return err
					}
					files = append(files, matches...)
				}
			}

			var timeout time.Duration
			if cmd.Bool("solve") {
				timeout = cmd.Duration("timeout")
			}

			w := cmd.Root().Writer
			for _, file := range files {
				fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))
				if err := analyzePack(ctx, w, file, timeout); err != nil {
					fmt.Fprintf(w, "Error: %v\n", err)
				}
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
