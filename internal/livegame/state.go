// Package livegame defines the shared in-progress game document of a league
// and the pure operations that move it forward.
//
// A State is replaced as a whole on every write. Concurrent editors are
// reconciled by LastUpdated alone: the newest document wins.
package livegame

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/scoring"
)

type Stage string

const (
	StageRoster  Stage = "roster"
	StageSetup   Stage = "setup"
	StageGame    Stage = "game"
	StageSummary Stage = "summary"
)

func (s Stage) Valid() bool {
	switch s {
	case StageRoster, StageSetup, StageGame, StageSummary:
		return true
	}
	return false
}

type State struct {
	Stage             Stage                  `json:"stage"`
	SelectedPlayerIDs []string               `json:"selectedPlayerIds"`
	Assignments       map[string]league.Team `json:"assignments"`
	GamePlayers       []league.GamePlayer    `json:"gamePlayers"`
	TeamNames         league.TeamNames       `json:"teamNames"`
	GoalEvents        []league.GoalEvent     `json:"goalEvents"`
	SecondsElapsed    int                    `json:"secondsElapsed"`
	IsTimerRunning    bool                   `json:"isTimerRunning"`
	TimerOwnerID      *string                `json:"timerOwnerId"`
	AlarmAtSeconds    *int                   `json:"alarmAtSeconds"`
	AlarmAcknowledged bool                   `json:"alarmAcknowledged"`
	LastUpdated       int64                  `json:"lastUpdated"`
}

// Empty is the state of a league that has no game going on.
func Empty(now time.Time) State {
	return State{
		Stage:             StageRoster,
		SelectedPlayerIDs: []string{},
		Assignments:       map[string]league.Team{},
		GamePlayers:       []league.GamePlayer{},
		TeamNames:         league.DefaultTeamNames(),
		GoalEvents:        []league.GoalEvent{},
		LastUpdated:       now.UnixMilli(),
	}
}

// Clone returns a copy that shares no slices, maps or pointers with s.
func (s State) Clone() State {
	out := s
	out.SelectedPlayerIDs = append([]string{}, s.SelectedPlayerIDs...)
	out.GamePlayers = append([]league.GamePlayer{}, s.GamePlayers...)
	out.GoalEvents = append([]league.GoalEvent{}, s.GoalEvents...)
	out.Assignments = make(map[string]league.Team, len(s.Assignments))
	for k, v := range s.Assignments {
		out.Assignments[k] = v
	}
	if s.TimerOwnerID != nil {
		owner := *s.TimerOwnerID
		out.TimerOwnerID = &owner
	}
	if s.AlarmAtSeconds != nil {
		at := *s.AlarmAtSeconds
		out.AlarmAtSeconds = &at
	}
	return out
}

// Normalize repairs a typed value with the same rules Sanitize applies to
// raw documents.
func (s State) Normalize(now time.Time) State {
	raw, err := json.Marshal(s)
	if err != nil {
		return Empty(now)
	}
	return Sanitize(raw, now)
}

// NewerThan reports whether s must not be replaced by other.
func (s State) NewerThan(other State) bool {
	return s.LastUpdated > other.LastUpdated
}

func (s State) Player(id string) (league.GamePlayer, bool) {
	i := s.playerIndex(id)
	if i < 0 {
		return league.GamePlayer{}, false
	}
	return s.GamePlayers[i], true
}

func (s State) Selected(id string) bool {
	return slices.Contains(s.SelectedPlayerIDs, id)
}

func (s State) Scores() league.TeamScores {
	return league.TeamScores{
		A: scoring.TeamScore(s.GamePlayers, league.TeamA),
		B: scoring.TeamScore(s.GamePlayers, league.TeamB),
	}
}

// Clock renders the elapsed game time as mm:ss.
func (s State) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.SecondsElapsed/60, s.SecondsElapsed%60)
}

// AlarmDue reports whether the clock has reached an alarm nobody has
// acknowledged yet.
func (s State) AlarmDue() bool {
	return s.AlarmAtSeconds != nil &&
		s.SecondsElapsed >= *s.AlarmAtSeconds &&
		!s.AlarmAcknowledged
}

// Timeline returns the goal events in display order, oldest first. Events
// with equal or unparseable timestamps keep their recorded order.
func (s State) Timeline() []league.GoalEvent {
	events := append([]league.GoalEvent{}, s.GoalEvents...)
	sort.SliceStable(events, func(i, j int) bool {
		ti, errI := time.Parse(time.RFC3339Nano, events[i].Timestamp)
		tj, errJ := time.Parse(time.RFC3339Nano, events[j].Timestamp)
		if errI != nil || errJ != nil {
			return events[i].Timestamp < events[j].Timestamp
		}
		return ti.Before(tj)
	})
	return events
}

func (s State) playerIndex(id string) int {
	return slices.IndexFunc(s.GamePlayers, func(p league.GamePlayer) bool {
		return p.ID == id
	})
}
