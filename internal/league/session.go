package league

import (
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/google/uuid"
)

type SessionPlayer struct {
	PlayerID   string  `json:"playerId"`
	PlayerName string  `json:"playerName"`
	Team       Team    `json:"team"`
	Goals      int     `json:"goals"`
	Assists    int     `json:"assists"`
	Attendance bool    `json:"attendance"`
	WeekPoints float64 `json:"weekPoints"`
}

// SessionPayload is what a client submits when a game ends.
type SessionPayload struct {
	TeamAScore int             `json:"teamAScore"`
	TeamBScore int             `json:"teamBScore"`
	Winner     Winner          `json:"winner"`
	Players    []SessionPlayer `json:"players"`
	TeamNames  *TeamNames      `json:"teamNames,omitempty"`
	GoalEvents []GoalEvent     `json:"goalEvents"`
}

// Validate rejects payloads that must never reach storage.
func (p SessionPayload) Validate() error {
	if p.TeamAScore < 0 || p.TeamBScore < 0 {
		return apperr.Validation("Scores must not be negative")
	}
	if len(p.Players) == 0 {
		return apperr.Validation("At least one player is required")
	}
	if !p.Winner.Valid() {
		return apperr.Validation("Winner must be A, B or Tie")
	}
	if p.Winner != (TeamScores{A: p.TeamAScore, B: p.TeamBScore}).Winner() {
		return apperr.Validation("Winner does not match the team scores")
	}

	seen := make(map[string]struct{}, len(p.Players))
	for _, player := range p.Players {
		if player.PlayerID == "" {
			return apperr.Validation("Every player needs an id")
		}
		if _, dup := seen[player.PlayerID]; dup {
			return apperr.Validation("A player can only appear once per session")
		}
		seen[player.PlayerID] = struct{}{}
		if !player.Team.Valid() {
			return apperr.Validation("Player team must be A or B")
		}
		if player.Goals < 0 || player.Assists < 0 {
			return apperr.Validation("Goals and assists must not be negative")
		}
	}
	return nil
}

// SavedSession is an immutable record of one completed game.
type SavedSession struct {
	ID         uuid.UUID       `json:"id"`
	LeagueID   uuid.UUID       `json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
	TeamAScore int             `json:"teamAScore"`
	TeamBScore int             `json:"teamBScore"`
	Winner     Winner          `json:"winner"`
	TeamNames  *TeamNames      `json:"teamNames,omitempty"`
	Players    []SessionPlayer `json:"players"`
	GoalEvents []GoalEvent     `json:"goalEvents"`
}
