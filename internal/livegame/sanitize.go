package livegame

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ValidationError is returned by Decode for bytes that are not a live game
// document at all.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid live game state: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return apperr.ErrValidation
}

// Decode is the strict entry point for documents arriving over the wire.
// Malformed JSON and non-object documents are rejected; everything else is
// repaired by Sanitize. An empty body or null decodes to the empty state.
func Decode(raw []byte, now time.Time) (State, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Empty(now), nil
	}
	if !gjson.ValidBytes(trimmed) {
		return State{}, &ValidationError{Reason: "malformed JSON"}
	}
	if !gjson.ParseBytes(trimmed).IsObject() {
		return State{}, &ValidationError{Reason: "expected an object"}
	}
	return Sanitize(trimmed, now), nil
}

// Sanitize turns any input into a well formed State. It never fails: fields
// that are missing or of the wrong shape fall back to their empty values.
func Sanitize(raw []byte, now time.Time) State {
	if !gjson.ValidBytes(raw) {
		return Empty(now)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Empty(now)
	}

	s := Empty(now)

	if stage := Stage(doc.Get("stage").String()); stage.Valid() {
		s.Stage = stage
	}

	seen := map[string]struct{}{}
	for _, v := range doc.Get("selectedPlayerIds").Array() {
		id, ok := identifier(v)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s.SelectedPlayerIDs = append(s.SelectedPlayerIDs, id)
	}

	if assignments := doc.Get("assignments"); assignments.IsObject() {
		assignments.ForEach(func(key, value gjson.Result) bool {
			team := league.Team(value.String())
			if key.String() != "" && value.Type == gjson.String && team.Valid() {
				s.Assignments[key.String()] = team
			}
			return true
		})
	}

	players := map[string]struct{}{}
	for _, v := range doc.Get("gamePlayers").Array() {
		if !v.IsObject() {
			continue
		}
		id, ok := identifier(v.Get("id"))
		if !ok {
			continue
		}
		if _, dup := players[id]; dup {
			continue
		}
		players[id] = struct{}{}
		s.GamePlayers = append(s.GamePlayers, league.GamePlayer{
			ID:      id,
			Name:    text(v.Get("name")),
			Team:    league.ParseTeam(v.Get("team").String()),
			Goals:   count(v.Get("goals")),
			Assists: count(v.Get("assists")),
		})
	}

	if names := doc.Get("teamNames"); names.IsObject() {
		if a := names.Get("A"); a.Type == gjson.String {
			s.TeamNames.A = a.Str
		}
		if b := names.Get("B"); b.Type == gjson.String {
			s.TeamNames.B = b.Str
		}
	}

	for _, v := range doc.Get("goalEvents").Array() {
		if !v.IsObject() {
			continue
		}
		playerID, ok := identifier(v.Get("playerId"))
		if !ok {
			continue
		}
		event := league.GoalEvent{
			ID:         text(v.Get("id")),
			PlayerID:   playerID,
			PlayerName: text(v.Get("playerName")),
			Team:       league.ParseTeam(v.Get("team").String()),
			Timestamp:  text(v.Get("timestamp")),
		}
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp == "" {
			event.Timestamp = league.FormatTimestamp(now)
		}
		s.GoalEvents = append(s.GoalEvents, event)
	}

	s.SecondsElapsed = count(doc.Get("secondsElapsed"))
	s.IsTimerRunning = doc.Get("isTimerRunning").Bool()
	if owner := text(doc.Get("timerOwnerId")); owner != "" {
		s.TimerOwnerID = &owner
	}
	if alarm := doc.Get("alarmAtSeconds"); alarm.Exists() {
		if _, ok := number(alarm); ok {
			at := count(alarm)
			s.AlarmAtSeconds = &at
		}
	}
	s.AlarmAcknowledged = doc.Get("alarmAcknowledged").Bool()

	if n, ok := number(doc.Get("lastUpdated")); ok && math.Abs(n) < 1<<62 {
		s.LastUpdated = int64(n)
	}

	return s
}

// identifier accepts strings and numbers, the two shapes ids have been
// written with.
func identifier(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		return v.Str, v.Str != ""
	case gjson.Number:
		return v.Raw, true
	}
	return "", false
}

func text(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// count reads a non-negative whole number, treating anything unusable as 0.
func count(v gjson.Result) int {
	n, ok := number(v)
	if !ok || n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(n))
}

func number(v gjson.Result) (float64, bool) {
	var n float64
	switch v.Type {
	case gjson.Number:
		n = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
