package league

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type League struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	PublicToken string    `db:"public_token" json:"publicToken"`
	OwnerID     uuid.UUID `db:"owner_user_id" json:"-"`
	Role        Role      `db:"role" json:"role,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	ScoringConfig
}

// Summary is what a public token holder gets to see about a league.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PublicToken string    `json:"publicToken"`
	ScoringConfig
}

func (l League) Summary() Summary {
	return Summary{
		ID:            l.ID,
		Name:          l.Name,
		PublicToken:   l.PublicToken,
		ScoringConfig: l.ScoringConfig,
	}
}
