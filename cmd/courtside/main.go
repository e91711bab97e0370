package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apiclient"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livesync"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/realtime"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/recorder"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "courtside",
		Usage: "keep score of a floorball league from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8080", Usage: "scorekeeper server URL", EnvVars: []string{"COURTSIDE_SERVER"}},
			&cli.StringFlag{Name: "token", Usage: "bearer token of a league member", EnvVars: []string{"COURTSIDE_TOKEN"}},
			&cli.StringFlag{Name: "league", Usage: "league id, used with --token", EnvVars: []string{"COURTSIDE_LEAGUE"}},
			&cli.StringFlag{Name: "public-token", Usage: "public league token", EnvVars: []string{"COURTSIDE_PUBLIC_TOKEN"}},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "play",
				Usage:  "run the live scorekeeper console",
				Action: play,
			},
			{
				Name:  "leaderboard",
				Usage: "print the league standings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Value: "points", Usage: "name, points, goals, assists or attendance"},
					&cli.StringFlag{Name: "dir", Value: "desc", Usage: "asc or desc"},
				},
				Action: printStandings,
			},
			{
				Name:  "players",
				Usage: "list the roster, or add players given as arguments",
				Action: func(c *cli.Context) error {
					api, err := newAPIClient(c)
					if err != nil {
						return err
					}
					for _, name := range c.Args().Slice() {
						p, err := api.AddPlayer(c.Context, name)
						if err != nil {
							return err
						}
						fmt.Printf("added %s\n", p.Name)
					}
					players, err := api.ListPlayers(c.Context)
					if err != nil {
						return err
					}
					for _, p := range players {
						fmt.Println(p.Name)
					}
					return nil
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(apperr.Message(err))
	}
}

func newAPIClient(c *cli.Context) (*apiclient.Client, error) {
	auth := apiclient.Auth{
		BearerToken: c.String("token"),
		PublicToken: c.String("public-token"),
	}
	if raw := c.String("league"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid league id: %w", err)
		}
		auth.LeagueID = id
	}
	switch {
	case auth.BearerToken != "" && auth.LeagueID == uuid.Nil:
		return nil, errors.New("--league is required with --token")
	case auth.BearerToken == "" && auth.PublicToken == "":
		return nil, errors.New("either --token with --league or --public-token is required")
	}
	return apiclient.New(c.String("server"), auth), nil
}

func printStandings(c *cli.Context) error {
	column, err := leaderboard.ParseColumn(c.String("sort"))
	if err != nil {
		return err
	}
	dir, err := leaderboard.ParseDirection(c.String("dir"))
	if err != nil {
		return err
	}
	api, err := newAPIClient(c)
	if err != nil {
		return err
	}
	rows, err := api.Leaderboard(c.Context, column, dir)
	if err != nil {
		return err
	}
	writeLeaderboard(os.Stdout, rows)
	return nil
}

// lockedWriter serializes console output with the background notifications.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func play(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := newAPIClient(c)
	if err != nil {
		return err
	}
	out := &lockedWriter{w: os.Stdout}

	// Both start offline; the websocket connection decides connectivity.
	syncer := livesync.New(api, livesync.WithOnline(false))
	rec := recorder.New(api, recorder.WithOnline(false))
	con := &console{sync: syncer, recorder: rec, roster: api, out: out}

	go func() {
		if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("synchronizer stopped", "error", err)
		}
	}()

	wsURL, header := api.WebsocketURL()
	subscriber := realtime.NewClient(wsURL, header, realtime.Hooks{
		OnConnect: func() {
			syncer.SetOnline(true)
			outcome, err := rec.SetOnline(ctx, true)
			if outcome != nil {
				con.printOutcome(*outcome)
			}
			if err != nil {
				fmt.Fprintf(out, "queued session rejected: %s\n", apperr.Message(err))
			}
		},
		OnDisconnect: func(err error) {
			syncer.SetOnline(false)
			rec.SetOnline(ctx, false)
		},
		OnState: syncer.Notify,
		OnDeleted: func(at time.Time) {
			syncer.Notify(livegame.Empty(at))
		},
	})
	go subscriber.ConnectWithRetry(ctx)
	go watchAlarm(ctx, syncer, out)

	con.start(ctx)
	fmt.Fprintln(out, "type help for commands")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := con.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "error: %s\n", apperr.Message(err))
			}
		}
	}
}

// watchAlarm announces the alarm once each time it becomes due.
func watchAlarm(ctx context.Context, syncer *livesync.Synchronizer, out io.Writer) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	ringing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due := syncer.AlarmDue()
			if due && !ringing {
				fmt.Fprintln(out, "\aALARM: time is up (ack to silence)")
			}
			ringing = due
		}
	}
}
