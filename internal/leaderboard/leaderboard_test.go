package leaderboard

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)

func session(offset int, players ...league.SessionPlayer) league.SavedSession {
	return league.SavedSession{CreatedAt: day.AddDate(0, 0, 7*offset), Players: players}
}

func TestAggregateSumsSessions(t *testing.T) {
	sessions := []league.SavedSession{
		session(1, league.SessionPlayer{PlayerID: "x", PlayerName: "Xena", Goals: 1, WeekPoints: 2, Attendance: true}),
		session(0, league.SessionPlayer{PlayerID: "x", PlayerName: "Xena", Goals: 2, WeekPoints: 3, Attendance: true}),
	}

	rows := Aggregate(sessions)

	require.Len(t, rows, 1)
	want := Row{PlayerID: "x", Name: "Xena", Points: 5, Goals: 3, Attendance: 2}
	if diff := cmp.Diff(want, rows[0], cmpopts.IgnoreUnexported(Row{})); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateEmpty(t *testing.T) {
	rows := Aggregate(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestAggregateUsesLatestName(t *testing.T) {
	sessions := []league.SavedSession{
		session(2, league.SessionPlayer{PlayerID: "p", PlayerName: "Robert"}),
		session(1, league.SessionPlayer{PlayerID: "p", PlayerName: "Bob"}),
		session(2, league.SessionPlayer{PlayerID: "p", PlayerName: "Rob"}),
	}

	rows := Aggregate(sessions)

	require.Len(t, rows, 1)
	assert.Equal(t, "Robert", rows[0].Name)
	assert.Equal(t, 3, rows[0].Attendance)
}

func TestAggregateSortsByName(t *testing.T) {
	sessions := []league.SavedSession{
		session(0,
			league.SessionPlayer{PlayerID: "3", PlayerName: "carl", WeekPoints: 1},
			league.SessionPlayer{PlayerID: "1", PlayerName: "Anna", WeekPoints: 7},
			league.SessionPlayer{PlayerID: "2", PlayerName: "bert", WeekPoints: 7},
		),
	}

	rows := Aggregate(sessions)

	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Anna", "bert", "carl"}, names)
}

func TestSort(t *testing.T) {
	sessions := []league.SavedSession{
		session(0,
			league.SessionPlayer{PlayerID: "a", PlayerName: "Dora", WeekPoints: 6, Goals: 1},
			league.SessionPlayer{PlayerID: "b", PlayerName: "Cleo", WeekPoints: 2, Goals: 1},
			league.SessionPlayer{PlayerID: "c", PlayerName: "Bea", WeekPoints: 6, Goals: 0},
			league.SessionPlayer{PlayerID: "d", PlayerName: "Ada", WeekPoints: 1, Goals: 1},
		),
	}
	rows := Aggregate(sessions)

	testCases := []struct {
		name     string
		column   Column
		dir      Direction
		expected []string
	}{
		{name: "points desc keeps first seen order on ties", column: ColumnPoints, dir: Descending, expected: []string{"a", "c", "b", "d"}},
		{name: "points asc", column: ColumnPoints, dir: Ascending, expected: []string{"d", "b", "a", "c"}},
		{name: "goals desc", column: ColumnGoals, dir: Descending, expected: []string{"a", "b", "d", "c"}},
		{name: "name desc", column: ColumnName, dir: Descending, expected: []string{"a", "b", "c", "d"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sorted := Sort(rows, tc.column, tc.dir)
			var ids []string
			for _, r := range sorted {
				ids = append(ids, r.PlayerID)
			}
			assert.Equal(t, tc.expected, ids)
		})
	}

	assert.Equal(t, "Ada", rows[0].Name, "Sort must not reorder its input")
}

func TestParseColumnAndDirection(t *testing.T) {
	c, err := ParseColumn(" Points ")
	require.NoError(t, err)
	assert.Equal(t, ColumnPoints, c)

	c, err = ParseColumn("")
	require.NoError(t, err)
	assert.Equal(t, ColumnName, c)

	_, err = ParseColumn("shoe size")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
