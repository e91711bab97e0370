package livegame

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 14, 18, 30, 0, 0, time.UTC)

func TestSanitizeDefaults(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "nil", input: ""},
		{name: "null", input: "null"},
		{name: "array", input: "[1,2,3]"},
		{name: "number", input: "42"},
		{name: "broken", input: `{"stage":`},
		{name: "empty object", input: "{}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize([]byte(tc.input), testNow)
			if diff := cmp.Diff(Empty(testNow), got); diff != "" {
				t.Errorf("Sanitize(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
			assert.NotNil(t, got.SelectedPlayerIDs)
			assert.NotNil(t, got.Assignments)
			assert.NotNil(t, got.GamePlayers)
			assert.NotNil(t, got.GoalEvents)
		})
	}
}

func TestSanitizeRepairsFields(t *testing.T) {
	raw := `{
		"stage": "overtime",
		"selectedPlayerIds": ["p1", 7, "p1", null, ""],
		"assignments": {"p1": "B", "p2": "C", "p3": 1},
		"gamePlayers": [
			{"id": "p1", "name": "Anna", "team": "B", "goals": "3", "assists": -2},
			{"name": "no id"},
			{"id": "p1", "name": "duplicate"},
			{"id": 7, "team": "x", "goals": 2.7}
		],
		"teamNames": {"A": "Reds", "B": 5},
		"goalEvents": [
			{"id": "e1", "playerId": "p1", "playerName": "Anna", "team": "B", "timestamp": "2024-03-14T18:00:00.000Z"},
			{"id": "e2", "team": "A"},
			{"playerId": 7}
		],
		"secondsElapsed": -10,
		"isTimerRunning": true,
		"timerOwnerId": "",
		"alarmAtSeconds": "-5",
		"alarmAcknowledged": 1,
		"lastUpdated": "not a number"
	}`

	got := Sanitize([]byte(raw), testNow)

	assert.Equal(t, StageRoster, got.Stage)
	assert.Equal(t, []string{"p1", "7"}, got.SelectedPlayerIDs)
	assert.Equal(t, map[string]league.Team{"p1": league.TeamB}, got.Assignments)

	require.Len(t, got.GamePlayers, 2)
	assert.Equal(t, league.GamePlayer{ID: "p1", Name: "Anna", Team: league.TeamB, Goals: 3}, got.GamePlayers[0])
	assert.Equal(t, league.GamePlayer{ID: "7", Team: league.TeamA, Goals: 2}, got.GamePlayers[1])

	assert.Equal(t, league.TeamNames{A: "Reds", B: "Team B"}, got.TeamNames)

	require.Len(t, got.GoalEvents, 2)
	assert.Equal(t, "e1", got.GoalEvents[0].ID)
	assert.Equal(t, "7", got.GoalEvents[1].PlayerID)
	assert.NotEmpty(t, got.GoalEvents[1].ID)
	assert.Equal(t, league.FormatTimestamp(testNow), got.GoalEvents[1].Timestamp)

	assert.Equal(t, 0, got.SecondsElapsed)
	assert.True(t, got.IsTimerRunning)
	assert.Nil(t, got.TimerOwnerID)
	require.NotNil(t, got.AlarmAtSeconds)
	assert.Equal(t, 0, *got.AlarmAtSeconds)
	assert.True(t, got.AlarmAcknowledged)
	assert.Equal(t, testNow.UnixMilli(), got.LastUpdated)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		`{"stage":"game","gamePlayers":[{"id":"a","goals":"2"}],"goalEvents":[{"playerId":"a"}]}`,
		`{"stage":"summary","timerOwnerId":"c1","alarmAtSeconds":600,"secondsElapsed":"61.9","lastUpdated":1700000000000.4}`,
		`{"assignments":{"x":"A","y":"B"},"selectedPlayerIds":["x","y",3]}`,
	}

	for _, in := range inputs {
		once := Sanitize([]byte(in), testNow)
		raw, err := json.Marshal(once)
		require.NoError(t, err)

		twice := Sanitize(raw, testNow.Add(time.Hour))
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("Sanitize not idempotent for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := Decode([]byte(`{"stage": "game"`), testNow)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects non objects", func(t *testing.T) {
		_, err := Decode([]byte(`"game"`), testNow)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("null is the empty state", func(t *testing.T) {
		got, err := Decode([]byte(" null "), testNow)
		require.NoError(t, err)
		assert.Equal(t, Empty(testNow), got)
	})

	t.Run("objects are sanitized", func(t *testing.T) {
		got, err := Decode([]byte(`{"stage":"setup","lastUpdated":5}`), testNow)
		require.NoError(t, err)
		assert.Equal(t, StageSetup, got.Stage)
		assert.Equal(t, int64(5), got.LastUpdated)
	})
}

func TestNormalize(t *testing.T) {
	broken := State{
		Stage:       "bogus",
		GamePlayers: []league.GamePlayer{{ID: "a", Goals: -3, Team: "Z"}, {Name: "ghost"}},
		LastUpdated: 10,
	}

	got := broken.Normalize(testNow)

	assert.Equal(t, StageRoster, got.Stage)
	assert.Equal(t, []league.GamePlayer{{ID: "a", Team: league.TeamA}}, got.GamePlayers)
	assert.Equal(t, league.TeamNames{}, got.TeamNames)
	assert.Equal(t, int64(10), got.LastUpdated)
}
