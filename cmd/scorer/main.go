// Command scorer is a terminal scoring console. It creates (or joins) a
// room, starts a game, and scores turns typed as totals ("60"), dart lists
// ("T20 T20 D20"), or "undo", while following authoritative snapshots from
// the backend.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chalkline/dartscore/internal/client"
	"github.com/chalkline/dartscore/internal/coordinator"
	"github.com/chalkline/dartscore/internal/engine"
	"github.com/chalkline/dartscore/internal/realtime"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	var (
		server    = flag.String("server", "http://localhost:8080", "backend base URL")
		roomCode  = flag.String("room", "", "join an existing room by code (default: create one)")
		token     = flag.String("token", "", "admin token for an existing room")
		players   = flag.String("players", "Player 1,Player 2", "comma-separated player names")
		mode      = flag.Int("mode", 501, "starting score, 301 or 501")
		doubleOut = flag.Bool("double-out", true, "require a double or bull to finish")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	api := client.New(*server, client.WithAdminToken(*token), client.WithLogger(logger))

	code := *roomCode
	if code == "" {
		created, err := api.CreateRoom(ctx)
		if err != nil {
			return fmt.Errorf("creating room: %w", err)
		}
		code = created.Room.Code
		api.SetAdminToken(created.AdminToken)
		fmt.Fprintf(stdout, "room %s created\nadmin token (save it): %s\n", code, created.AdminToken)
	}

	names := splitNames(*players)
	snap, err := api.CreateGame(ctx, code, engine.Settings{
		StartingScore: *mode,
		DoubleOut:     *doubleOut,
		Players:       names,
	})
	if err != nil {
		return fmt.Errorf("starting game: %w", err)
	}
	fmt.Fprintf(stdout, "game %s started: %d players, %d %s\n\n",
		snap.Game.ID, len(snap.Players), snap.Game.Mode, finishRule(snap.Game.DoubleOut))

	coord := coordinator.New(coordinator.Config{
		Backend: api,
		GameID:  snap.Game.ID,
		OnUpdate: func(s realtime.GameSnapshot) {
			printScoreboard(stdout, s)
		},
		OnStateChange: func(s realtime.State) {
			if s == realtime.StateFallback {
				fmt.Fprintln(stdout, "(live channel lost, staying in sync over plain requests)")
			}
		},
		Logger: logger,
	})
	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	return inputLoop(ctx, stdin, stdout, coord)
}

func inputLoop(ctx context.Context, stdin io.Reader, stdout io.Writer, coord *coordinator.Coordinator) error {
	scanner := bufio.NewScanner(stdin)
	fmt.Fprintln(stdout, `enter a turn total ("60"), darts ("T20 T20 D20"), "undo", or "quit"`)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "undo":
			err = coord.Undo(ctx)
		case "refresh":
			err = coord.Refresh(ctx)
		default:
			err = submit(ctx, coord, line)
		}
		if err != nil {
			fmt.Fprintf(stdout, "rejected: %v\n", err)
		}
		// Fallback mode gets no pushes, keep the board fresh by hand.
		if coord.ConnectionState() == realtime.StateFallback {
			_ = coord.Refresh(ctx)
		}

		if snap, ok := coord.Snapshot(); ok && snap.Game.Status == realtime.GameStatusCompleted {
			fmt.Fprintln(stdout, `game over ("undo" reopens it, "quit" exits)`)
		}
	}
}

func submit(ctx context.Context, coord *coordinator.Coordinator, line string) error {
	if total, err := strconv.Atoi(line); err == nil {
		return coord.SubmitTotal(ctx, total)
	}
	darts, err := parseDarts(line)
	if err != nil {
		return err
	}
	return coord.SubmitDarts(ctx, darts)
}

// parseDarts reads a whitespace-separated dart list: S/D/T prefix plus a
// segment number, "25"/"OB" for the outer bull, "50"/"B"/"BULL" for the
// bull. A bare number is a single.
func parseDarts(line string) ([]engine.Dart, error) {
	fields := strings.Fields(line)
	darts := make([]engine.Dart, 0, len(fields))
	for _, f := range fields {
		d, err := parseDart(f)
		if err != nil {
			return nil, err
		}
		darts = append(darts, d)
	}
	return darts, nil
}

func parseDart(s string) (engine.Dart, error) {
	up := strings.ToUpper(s)
	switch up {
	case "B", "BULL", "50":
		return engine.Dart{Mult: engine.Bull, Value: 50}, nil
	case "OB", "25":
		return engine.Dart{Mult: engine.OuterBull, Value: 25}, nil
	}

	mult := engine.Single
	num := up
	switch {
	case strings.HasPrefix(up, "T"):
		mult, num = engine.Triple, up[1:]
	case strings.HasPrefix(up, "D"):
		mult, num = engine.Double, up[1:]
	case strings.HasPrefix(up, "S"):
		num = up[1:]
	}
	value, err := strconv.Atoi(num)
	if err != nil {
		return engine.Dart{}, fmt.Errorf("unrecognized dart %q", s)
	}
	d := engine.Dart{Mult: mult, Value: value}
	if !d.Valid() {
		return engine.Dart{}, fmt.Errorf("invalid dart %q", s)
	}
	return d, nil
}

func printScoreboard(w io.Writer, snap realtime.GameSnapshot) {
	fmt.Fprintln(w)
	current := snap.CurrentPlayerIndex()
	for i, p := range snap.Players {
		marker := "  "
		if i == current {
			marker = "->"
		}
		line := fmt.Sprintf("%s %-16s %4d", marker, p.Name, p.Remaining)
		if p.Stats != nil {
			line += fmt.Sprintf("   avg %.1f", p.Stats.AvgPer3Darts)
			if p.Stats.Count180s > 0 {
				line += fmt.Sprintf("   180s %d", p.Stats.Count180s)
			}
		}
		fmt.Fprintln(w, line)
	}

	if n := len(snap.LastTurns); n > 0 {
		last := snap.LastTurns[n-1]
		note := ""
		if last.IsBust {
			note = " BUST"
		}
		if last.IsWin {
			note = " WINS with " + last.FinishDart
		}
		fmt.Fprintf(w, "   turn %d: %d scored%s\n", last.TurnIndex, last.TurnTotal, note)
	}

	if snap.Game.Status == realtime.GameStatusCompleted {
		for _, p := range snap.Players {
			if p.ID == snap.Game.WinnerPlayerID {
				fmt.Fprintf(w, "   %s wins!\n", p.Name)
			}
		}
	}
	fmt.Fprintln(w)
}

func finishRule(doubleOut bool) string {
	if doubleOut {
		return "double out"
	}
	return "straight out"
}

func splitNames(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			out = append(out, name)
		}
	}
	return out
}
