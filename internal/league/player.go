package league

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID        uuid.UUID `db:"id" json:"id"`
	LeagueID  uuid.UUID `db:"league_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// GamePlayer is a roster player taking part in the live game. Ids are kept as
// opaque strings because they travel inside the shared live document.
type GamePlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    Team   `json:"team"`
	Goals   int    `json:"goals"`
	Assists int    `json:"assists"`
}

type GoalEvent struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Team       Team   `json:"team"`
	Timestamp  string `json:"timestamp"`
}

// TimestampLayout matches the millisecond ISO-8601 strings browsers produce.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
