package livegame

import (
	"slices"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
)

// Every mutation below works on a copy and stamps the result so that it sorts
// after the state it was derived from, even when the wall clock has not moved.

func (s State) stamp(now time.Time) State {
	s.LastUpdated = max(now.UnixMilli(), s.LastUpdated+1)
	return s
}

// AdjustGoal changes a player's goal count by delta, never going below zero.
// Added goals append timeline events; removed goals drop that player's most
// recent events first.
func (s State) AdjustGoal(playerID string, delta int, now time.Time) State {
	if delta == 0 {
		return s
	}
	next := s.Clone()
	i := next.playerIndex(playerID)
	if i < 0 {
		return next.stamp(now)
	}

	player := &next.GamePlayers[i]
	player.Goals = max(0, player.Goals+delta)

	if delta > 0 {
		ts := league.FormatTimestamp(now)
		for range delta {
			next.GoalEvents = append(next.GoalEvents, league.GoalEvent{
				ID:         uuid.NewString(),
				PlayerID:   player.ID,
				PlayerName: player.Name,
				Team:       player.Team,
				Timestamp:  ts,
			})
		}
		return next.stamp(now)
	}

	remove := -delta
	for j := len(next.GoalEvents) - 1; j >= 0 && remove > 0; j-- {
		if next.GoalEvents[j].PlayerID == playerID {
			next.GoalEvents = slices.Delete(next.GoalEvents, j, j+1)
			remove--
		}
	}
	return next.stamp(now)
}

// AdjustAssist changes a player's assist count by delta, never going below
// zero. Assists have no timeline.
func (s State) AdjustAssist(playerID string, delta int, now time.Time) State {
	if delta == 0 {
		return s
	}
	next := s.Clone()
	if i := next.playerIndex(playerID); i >= 0 {
		next.GamePlayers[i].Assists = max(0, next.GamePlayers[i].Assists+delta)
	}
	return next.stamp(now)
}

// AssignTeam moves a game player to team. Goals the player already scored are
// relabelled so the timeline shows the current team.
func (s State) AssignTeam(playerID string, team league.Team, now time.Time) State {
	i := s.playerIndex(playerID)
	if i < 0 || !team.Valid() || s.GamePlayers[i].Team == team {
		return s
	}
	next := s.Clone()
	next.GamePlayers[i].Team = team
	for j := range next.GoalEvents {
		if next.GoalEvents[j].PlayerID == playerID {
			next.GoalEvents[j].Team = team
		}
	}
	next.Assignments[playerID] = team
	return next.stamp(now)
}

// ToggleSelection adds a roster player to the next game or takes them out.
func (s State) ToggleSelection(playerID string, now time.Time) State {
	next := s.Clone()
	if i := slices.Index(next.SelectedPlayerIDs, playerID); i >= 0 {
		next.SelectedPlayerIDs = slices.Delete(next.SelectedPlayerIDs, i, i+1)
		delete(next.Assignments, playerID)
		return next.stamp(now)
	}
	next.SelectedPlayerIDs = append(next.SelectedPlayerIDs, playerID)
	if _, ok := next.Assignments[playerID]; !ok {
		next.Assignments[playerID] = league.TeamA
	}
	return next.stamp(now)
}

// ToggleTeam flips a selected player's pre-game side. A player without an
// assignment lands on team A.
func (s State) ToggleTeam(playerID string, now time.Time) State {
	next := s.Clone()
	if next.Assignments[playerID] == league.TeamA {
		next.Assignments[playerID] = league.TeamB
	} else {
		next.Assignments[playerID] = league.TeamA
	}
	return next.stamp(now)
}

// StartGame builds the game players from the selection, in selection order,
// skipping ids that are no longer on the roster. The clock, the timeline and
// the alarm acknowledgement start over; team names and the alarm target stay.
func (s State) StartGame(roster []league.Player, now time.Time) State {
	byID := make(map[string]league.Player, len(roster))
	for _, p := range roster {
		byID[p.ID.String()] = p
	}

	next := s.Clone()
	next.GamePlayers = make([]league.GamePlayer, 0, len(next.SelectedPlayerIDs))
	for _, id := range next.SelectedPlayerIDs {
		p, ok := byID[id]
		if !ok {
			continue
		}
		team, ok := next.Assignments[id]
		if !ok {
			team = league.TeamA
		}
		next.GamePlayers = append(next.GamePlayers, league.GamePlayer{
			ID:   id,
			Name: p.Name,
			Team: team,
		})
	}

	next.Stage = StageGame
	next.GoalEvents = []league.GoalEvent{}
	next.SecondsElapsed = 0
	next.IsTimerRunning = false
	next.TimerOwnerID = nil
	next.AlarmAcknowledged = false
	return next.stamp(now)
}

// EndGame freezes the players, timeline and team names for the summary.
func (s State) EndGame(now time.Time) State {
	next := s.Clone()
	next.Stage = StageSummary
	next.IsTimerRunning = false
	next.TimerOwnerID = nil
	next.AlarmAtSeconds = nil
	next.AlarmAcknowledged = false
	return next.stamp(now)
}

func (s State) Reset(now time.Time) State {
	next := Empty(now)
	next.LastUpdated = s.LastUpdated
	return next.stamp(now)
}

func (s State) SetTeamName(team league.Team, name string, now time.Time) State {
	next := s.Clone()
	if team == league.TeamB {
		next.TeamNames.B = name
	} else {
		next.TeamNames.A = name
	}
	return next.stamp(now)
}

func (s State) GoToSetup(now time.Time) State {
	next := s.Clone()
	next.Stage = StageSetup
	next.AlarmAcknowledged = false
	return next.stamp(now)
}

func (s State) GoToRoster(now time.Time) State {
	next := s.Clone()
	next.Stage = StageRoster
	next.AlarmAcknowledged = false
	return next.stamp(now)
}

// StartTimer runs the clock and makes clientID the only client allowed to
// advance it.
func (s State) StartTimer(clientID string, now time.Time) State {
	next := s.Clone()
	next.IsTimerRunning = true
	next.TimerOwnerID = &clientID
	return next.stamp(now)
}

func (s State) PauseTimer(now time.Time) State {
	next := s.Clone()
	next.IsTimerRunning = false
	next.TimerOwnerID = nil
	return next.stamp(now)
}

// Tick advances the clock by one second when clientID owns the running timer.
// The boolean reports whether anything changed.
func (s State) Tick(clientID string, now time.Time) (State, bool) {
	if !s.IsTimerRunning || s.TimerOwnerID == nil || *s.TimerOwnerID != clientID {
		return s, false
	}
	next := s.Clone()
	next.SecondsElapsed++
	return next.stamp(now), true
}

// SetAlarm sets the alarm target in elapsed seconds; nil clears it.
func (s State) SetAlarm(seconds *int, now time.Time) State {
	next := s.Clone()
	next.AlarmAtSeconds = nil
	if seconds != nil {
		at := max(0, *seconds)
		next.AlarmAtSeconds = &at
	}
	next.AlarmAcknowledged = false
	return next.stamp(now)
}

func (s State) AcknowledgeAlarm(now time.Time) State {
	next := s.Clone()
	next.AlarmAcknowledged = true
	return next.stamp(now)
}
