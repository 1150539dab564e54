package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/pushrules/game/config"
	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/solver"
)

func levelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "pack",
			Value: config.DefaultPackID,
			Usage: "Level pack to load",
		},
		&cli.IntFlag{
			Name:  "level",
			Value: 1,
			Usage: "Level number to start on (1-based)",
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a level pack in the terminal",
		Description: `Enter one or more actions per line: w/a/s/d or up/down/left/right to move,
x to undo, r to reset, n/p for next/previous level, q to quit.
Key runs such as "ddss" are split into single moves.`,
		Flags:  levelFlags(),
		Action: runPlay,
	}
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:  "solve",
		Usage: "Print the shortest winning move sequence of a level",
		Flags: append(levelFlags(),
			&cli.IntFlag{
				Name:  "max-states",
				Value: solver.DefaultMaxStates,
				Usage: "Distinct states to explore before giving up",
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Value: solver.DefaultMaxDepth,
				Usage: "Longest move sequence considered",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: time.Minute,
				Usage: "Give up after this long",
			},
		),
		Action: runSolve,
	}
}

// loadEngine builds an engine on the pack and level selected by the flags
func loadEngine(cmd *cli.Command) (*engine.GameEngine, error) {
	packs, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return nil, err
	}
	pack, err := packs.LoadPack(cmd.String("pack"))
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(pack)
	if err != nil {
		return nil, err
	}
	if level := cmd.Int("level"); level != 1 {
		if err := eng.LoadLevel(level - 1); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// parseLine turns one line of input into actions. A token that is not an
// action name is read as a run of single-key actions.
func parseLine(line string) ([]engine.Action, error) {
	var actions []engine.Action
	for _, tok := range strings.Fields(line) {
		if a, err := engine.ParseAction(tok); err == nil {
			actions = append(actions, a)
			continue
		}
		for _, r := range tok {
			a, err := engine.ParseAction(string(r))
			if err != nil {
				return nil, fmt.Errorf("unknown input %q", tok)
			}
			actions = append(actions, a)
		}
	}
	return actions, nil
}

func render(w io.Writer, eng *engine.GameEngine) {
	fmt.Fprintf(w, "\nLevel %d/%d: %s  moves: %d  undo: %d/%d\n",
		eng.LevelIndex()+1, eng.LevelCount(), eng.LevelName(),
		eng.MoveCount(), eng.HistoryLen(), eng.HistoryCap())
	for _, row := range engine.EncodeLevel(eng.GetState()) {
		fmt.Fprintln(w, row)
	}
	if eng.IsVictory() {
		fmt.Fprintln(w, "Level complete! n for the next level, x to undo, r to reset.")
	}
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	eng, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	in := bufio.NewScanner(cmd.Root().Reader)

	render(out, eng)
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(in.Text())
		if line == "q" || line == "quit" {
			return nil
		}

		actions, err := parseLine(line)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		for _, a := range actions {
			if _, err := eng.Apply(a); err != nil {
				return err
			}
		}
		render(out, eng)
	}
}

func runSolve(ctx context.Context, cmd *cli.Command) error {
	eng, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	out := cmd.Root().Writer
	sol, err := solver.Solve(ctx, *eng.GetState(), eng.Rules(), solver.Options{
		MaxDepth:  cmd.Int("max-depth"),
		MaxStates: cmd.Int("max-states"),
	})
	if errors.Is(err, solver.ErrNoSolution) {
		fmt.Fprintf(out, "No solution found for %q after %d states", eng.LevelName(), sol.Explored)
		if sol.Truncated {
			fmt.Fprint(out, " (search bounds reached)")
		}
		fmt.Fprintln(out)
		return nil
	}
	if err != nil {
		return err
	}

	moves := make([]string, 0, len(sol.Moves))
	for _, a := range sol.Actions() {
		moves = append(moves, string(a))
	}
	fmt.Fprintf(out, "%s: %d moves (%d states explored)\n%s\n",
		eng.LevelName(), len(sol.Moves), sol.Explored, strings.Join(moves, " "))
	return nil
}
