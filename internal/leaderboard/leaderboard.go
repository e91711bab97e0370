// Package leaderboard folds recorded sessions into season standings.
package leaderboard

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
)

type Row struct {
	PlayerID   string  `json:"playerId"`
	Name       string  `json:"name"`
	Points     float64 `json:"points"`
	Goals      int     `json:"goals"`
	Assists    int     `json:"assists"`
	Attendance int     `json:"attendance"`

	order int
}

type Column string

const (
	ColumnName       Column = "name"
	ColumnPoints     Column = "points"
	ColumnGoals      Column = "goals"
	ColumnAssists    Column = "assists"
	ColumnAttendance Column = "attendance"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

func ParseColumn(s string) (Column, error) {
	switch c := Column(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ColumnName, nil
	case ColumnName, ColumnPoints, ColumnGoals, ColumnAssists, ColumnAttendance:
		return c, nil
	default:
		return "", fmt.Errorf("unknown leaderboard column %q", s)
	}
}

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Aggregate sums every player's sessions. A player is identified by id; the
// displayed name is the one from their most recent session, the first seen
// winning when sessions share a creation time. Rows come back ordered by
// name.
func Aggregate(sessions []league.SavedSession) []Row {
	rows := []Row{}
	index := map[string]int{}
	named := map[string]league.SavedSession{}

	for _, session := range sessions {
		for _, p := range session.Players {
			i, ok := index[p.PlayerID]
			if !ok {
				i = len(rows)
				index[p.PlayerID] = i
				rows = append(rows, Row{PlayerID: p.PlayerID, Name: p.PlayerName, order: i})
				named[p.PlayerID] = session
			} else if session.CreatedAt.After(named[p.PlayerID].CreatedAt) {
				rows[i].Name = p.PlayerName
				named[p.PlayerID] = session
			}

			rows[i].Points += p.WeekPoints
			rows[i].Goals += p.Goals
			rows[i].Assists += p.Assists
			rows[i].Attendance++
		}
	}

	return Sort(rows, ColumnName, Ascending)
}

// Sort returns a re-ordered copy of rows. Equal values keep the order in
// which their players were first seen.
func Sort(rows []Row, column Column, dir Direction) []Row {
	out := slices.Clone(rows)
	if out == nil {
		out = []Row{}
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		c := compare(a, b, column)
		if dir == Descending {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.order, b.order)
		}
		return c
	})
	return out
}

func compare(a, b Row, column Column) int {
	switch column {
	case ColumnPoints:
		return cmp.Compare(a.Points, b.Points)
	case ColumnGoals:
		return cmp.Compare(a.Goals, b.Goals)
	case ColumnAssists:
		return cmp.Compare(a.Assists, b.Assists)
	case ColumnAttendance:
		return cmp.Compare(a.Attendance, b.Attendance)
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}
