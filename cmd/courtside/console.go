package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/leaderboard"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livesync"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/recorder"
)

// errQuit ends the interactive loop.
var errQuit = errors.New("quit")

// Roster is the league data the console reads besides the live game.
type Roster interface {
	ListPlayers(ctx context.Context) ([]league.Player, error)
	AddPlayer(ctx context.Context, name string) (league.Player, error)
	ScoringConfig(ctx context.Context) (league.ScoringConfig, error)
}

// console interprets scorekeeper commands typed one per line.
type console struct {
	sync     *livesync.Synchronizer
	recorder *recorder.Recorder
	roster   Roster
	out      io.Writer

	players []league.Player
	scoring league.ScoringConfig
}

const helpText = `commands:
  players                 list the roster
  add NAME                add a player to the roster
  select NAME             toggle a player's selection
  team NAME A|B           put a selected player on a team
  setup | roster          move between the pre-game stages
  name A|B TEXT           rename a team
  start                   start the game with the selected players
  goal NAME [-]           add (or take back) a goal
  assist NAME [-]         add (or take back) an assist
  move NAME               switch a game player to the other team
  clock start|pause       run or stop the game clock
  alarm MINUTES|off       set or clear the clock alarm
  ack                     acknowledge the alarm
  end                     end the game and record the session
  reset                   clear the live game
  status                  show the live game
  history                 list recorded sessions
  delete N                delete the Nth session in history (admins)
  leaderboard [COL] [DIR] show the standings
  refresh                 reload roster, scoring and history
  quit`

// start loads what the server can give and otherwise leaves the console on
// an empty roster and the default scoring rules, so that a game can be kept
// while offline.
func (c *console) start(ctx context.Context) {
	c.scoring = league.DefaultScoringConfig()
	if err := c.load(ctx); err != nil {
		fmt.Fprintf(c.out, "starting offline: %s (type refresh once connected)\n", apperr.Message(err))
	}
}

// load fetches the roster, the scoring rules and the session history.
func (c *console) load(ctx context.Context) error {
	players, err := c.roster.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	cfg, err := c.roster.ScoringConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scoring config: %w", err)
	}
	c.players = players
	c.scoring = cfg
	if err := c.recorder.Refresh(ctx); err != nil {
		fmt.Fprintf(c.out, "could not load history: %s\n", apperr.Message(err))
	}
	return nil
}

func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "players":
		c.printRoster()
		return nil
	case "add":
		return c.addPlayer(ctx, strings.Join(args, " "))
	case "select":
		p, err := c.rosterPlayer(args)
		if err != nil {
			return err
		}
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			return s.ToggleSelection(p.ID.String(), now)
		})
	case "team":
		if len(args) < 2 {
			return apperr.Validation("usage: team NAME A|B")
		}
		p, err := c.rosterPlayer(args[:len(args)-1])
		if err != nil {
			return err
		}
		id := p.ID.String()
		team := league.ParseTeam(strings.ToUpper(args[len(args)-1]))
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			if !s.Selected(id) || s.Assignments[id] == team {
				return s
			}
			return s.ToggleTeam(id, now)
		})
	case "setup":
		return c.apply(ctx, livegame.State.GoToSetup)
	case "roster":
		return c.apply(ctx, livegame.State.GoToRoster)
	case "name":
		if len(args) < 2 {
			return apperr.Validation("usage: name A|B TEXT")
		}
		team := league.ParseTeam(strings.ToUpper(args[0]))
		name := strings.Join(args[1:], " ")
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			return s.SetTeamName(team, name, now)
		})
	case "start":
		roster := append([]league.Player{}, c.players...)
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			return s.StartGame(roster, now)
		})
	case "goal", "assist":
		id, delta, err := c.gamePlayerDelta(args)
		if err != nil {
			return err
		}
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			if cmd == "assist" {
				return s.AdjustAssist(id, delta, now)
			}
			return s.AdjustGoal(id, delta, now)
		})
	case "move":
		id, _, err := c.gamePlayerDelta(args)
		if err != nil {
			return err
		}
		return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
			p, _ := s.Player(id)
			return s.AssignTeam(id, p.Team.Other(), now)
		})
	case "clock":
		return c.clock(ctx, args)
	case "alarm":
		return c.alarm(ctx, args)
	case "ack":
		return c.apply(ctx, livegame.State.AcknowledgeAlarm)
	case "end":
		return c.endGame(ctx)
	case "reset":
		return c.apply(ctx, livegame.State.Reset)
	case "status":
		c.printStatus()
		return nil
	case "history":
		c.printHistory()
		return nil
	case "delete":
		return c.deleteSession(ctx, args)
	case "leaderboard":
		return c.printLeaderboard(args)
	case "refresh":
		if err := c.load(ctx); err != nil {
			return err
		}
		return c.sync.Refresh(ctx)
	default:
		return apperr.Validation(fmt.Sprintf("unknown command %q, try help", cmd))
	}
}

func (c *console) apply(ctx context.Context, fn livesync.Mutation) error {
	if _, err := c.sync.Apply(ctx, fn); err != nil {
		return err
	}
	c.printStatus()
	return nil
}

func (c *console) addPlayer(ctx context.Context, name string) error {
	p, err := c.roster.AddPlayer(ctx, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	c.players = append(c.players, p)
	fmt.Fprintf(c.out, "added %s\n", p.Name)
	return nil
}

// rosterPlayer finds a roster player by name, ignoring case.
func (c *console) rosterPlayer(args []string) (league.Player, error) {
	name := strings.Join(args, " ")
	for _, p := range c.players {
		if strings.EqualFold(p.Name, name) || p.ID.String() == name {
			return p, nil
		}
	}
	return league.Player{}, apperr.NotFound(fmt.Sprintf("no player named %q", name))
}

// gamePlayerDelta reads "NAME [-]" against the players of the running game.
func (c *console) gamePlayerDelta(args []string) (string, int, error) {
	delta := 1
	if n := len(args); n > 0 && args[n-1] == "-" {
		delta = -1
		args = args[:n-1]
	}
	name := strings.Join(args, " ")
	for _, p := range c.sync.Snapshot().GamePlayers {
		if strings.EqualFold(p.Name, name) || p.ID == name {
			return p.ID, delta, nil
		}
	}
	return "", 0, apperr.NotFound(fmt.Sprintf("%q is not in the game", name))
}

func (c *console) clock(ctx context.Context, args []string) error {
	var err error
	switch {
	case len(args) == 1 && args[0] == "start":
		_, err = c.sync.StartTimer(ctx)
	case len(args) == 1 && args[0] == "pause":
		_, err = c.sync.PauseTimer(ctx)
	default:
		return apperr.Validation("usage: clock start|pause")
	}
	if err != nil {
		return err
	}
	c.printStatus()
	return nil
}

func (c *console) alarm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return apperr.Validation("usage: alarm MINUTES|off")
	}
	var seconds *int
	if args[0] != "off" {
		minutes, err := strconv.ParseFloat(args[0], 64)
		if err != nil || minutes < 0 {
			return apperr.Validation("alarm needs a number of minutes")
		}
		s := int(minutes * 60)
		seconds = &s
	}
	return c.apply(ctx, func(s livegame.State, now time.Time) livegame.State {
		return s.SetAlarm(seconds, now)
	})
}

// endGame freezes the live game and hands the result to the recorder.
func (c *console) endGame(ctx context.Context) error {
	st, err := c.sync.Apply(ctx, livegame.State.EndGame)
	if err != nil {
		return err
	}
	out, err := c.recorder.Submit(ctx, recorder.Submission{
		Players:    st.GamePlayers,
		GoalEvents: st.Timeline(),
		TeamNames:  st.TeamNames,
		Config:     c.scoring,
	})
	c.printOutcome(out)
	return err
}

func (c *console) printOutcome(out recorder.Outcome) {
	switch out.Status {
	case recorder.StatusSaved:
		fmt.Fprintln(c.out, "session saved")
	case "":
	default:
		fmt.Fprintf(c.out, "session %s: %s\n", out.Status, out.Message)
	}
}

func (c *console) printRoster() {
	st := c.sync.Snapshot()
	for _, p := range c.players {
		mark := " "
		if st.Selected(p.ID.String()) {
			mark = "*"
			if st.Assignments[p.ID.String()] == league.TeamB {
				mark = "B"
			} else if _, ok := st.Assignments[p.ID.String()]; ok {
				mark = "A"
			}
		}
		fmt.Fprintf(c.out, "[%s] %s\n", mark, p.Name)
	}
}

func (c *console) printStatus() {
	st := c.sync.Snapshot()
	status := c.sync.Status()
	scores := st.Scores()

	conn := "online"
	if !status.Online {
		conn = "offline"
	}
	if status.Queued {
		conn += ", changes queued"
	}
	fmt.Fprintf(c.out, "%s | %s %d - %d %s | %s | %s\n",
		st.Stage, st.TeamNames.A, scores.A, scores.B, st.TeamNames.B, st.Clock(), conn)
	if st.AlarmDue() {
		fmt.Fprintln(c.out, "ALARM: time is up (ack to silence)")
	}
	if status.LastError != "" {
		fmt.Fprintf(c.out, "last sync error: %s\n", status.LastError)
	}
	for _, p := range st.GamePlayers {
		fmt.Fprintf(c.out, "  %s %-20s G%d A%d\n", p.Team, p.Name, p.Goals, p.Assists)
	}
}

func (c *console) printHistory() {
	for i, s := range c.recorder.History() {
		names := league.DefaultTeamNames()
		if s.TeamNames != nil {
			names = *s.TeamNames
		}
		fmt.Fprintf(c.out, "%2d. %s  %s %d - %d %s\n", i+1,
			s.CreatedAt.Local().Format("2006-01-02 15:04"), names.A, s.TeamAScore, s.TeamBScore, names.B)
	}
	if pending, ok := c.recorder.Pending(); ok {
		fmt.Fprintf(c.out, "1 session waiting to sync (%d players)\n", len(pending.Players))
	}
}

// deleteSession removes a session by its 1-based position in history.
func (c *console) deleteSession(ctx context.Context, args []string) error {
	history := c.recorder.History()
	if len(args) != 1 {
		return apperr.Validation("usage: delete N")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(history) {
		return apperr.Validation(fmt.Sprintf("pick a session between 1 and %d", len(history)))
	}
	if err := c.recorder.Delete(ctx, history[n-1].ID); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "session deleted")
	return nil
}

func (c *console) printLeaderboard(args []string) error {
	var col, dir string
	if len(args) > 0 {
		col = args[0]
	}
	if len(args) > 1 {
		dir = args[1]
	}
	column, err := leaderboard.ParseColumn(col)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	direction, err := leaderboard.ParseDirection(dir)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	writeLeaderboard(c.out, leaderboard.Sort(c.recorder.Leaderboard(), column, direction))
	return nil
}

func writeLeaderboard(w io.Writer, rows []leaderboard.Row) {
	fmt.Fprintf(w, "%-20s %7s %5s %7s %5s\n", "player", "points", "goals", "assists", "games")
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s %7.1f %5d %7d %5d\n", r.Name, r.Points, r.Goals, r.Assists, r.Attendance)
	}
}
