// Package scoring turns the final state of a game into weekly points.
package scoring

import "github.com/AdamBeresnev/floorball-scorekeeper/internal/league"

type Result struct {
	Players    []league.SessionPlayer
	TeamScores league.TeamScores
	Winner     league.Winner
}

// TeamScore sums the goals of every player on side. Negative goal counts are
// treated as zero.
func TeamScore(players []league.GamePlayer, side league.Team) int {
	total := 0
	for _, p := range players {
		if p.Team == side {
			total += max(0, p.Goals)
		}
	}
	return total
}

// ComputeWeeklyPoints scores one game. Every listed player attends, so every
// player gets the attendance points; the winning side also gets the bonus.
func ComputeWeeklyPoints(players []league.GamePlayer, cfg league.ScoringConfig) Result {
	scores := league.TeamScores{
		A: TeamScore(players, league.TeamA),
		B: TeamScore(players, league.TeamB),
	}
	winner := scores.Winner()

	payload := make([]league.SessionPlayer, 0, len(players))
	for _, p := range players {
		goals := max(0, p.Goals)
		assists := max(0, p.Assists)

		points := cfg.AttendancePoints + float64(goals)*cfg.GoalPoints
		if cfg.EnableAssists {
			points += float64(assists) * cfg.AssistPoints
		}
		if winner.Won(p.Team) {
			points += cfg.WinBonus
		}

		payload = append(payload, league.SessionPlayer{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Team:       p.Team,
			Goals:      goals,
			Assists:    assists,
			Attendance: true,
			WeekPoints: points,
		})
	}

	return Result{
		Players:    payload,
		TeamScores: scores,
		Winner:     winner,
	}
}

// Payload builds the session submission for a scored game.
func (r Result) Payload(teamNames league.TeamNames, events []league.GoalEvent) league.SessionPayload {
	names := teamNames
	evts := make([]league.GoalEvent, len(events))
	copy(evts, events)
	players := make([]league.SessionPlayer, len(r.Players))
	copy(players, r.Players)

	return league.SessionPayload{
		TeamAScore: r.TeamScores.A,
		TeamBScore: r.TeamScores.B,
		Winner:     r.Winner,
		Players:    players,
		TeamNames:  &names,
		GoalEvents: evts,
	}
}
