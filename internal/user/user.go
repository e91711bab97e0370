package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// ProviderGuest marks accounts created by the guest login. Every guest login
// gets its own account, keyed by its own id.
const ProviderGuest = "guest"

type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
	Provider   *string   `db:"provider" json:"provider,omitempty"`
	ProviderID *string   `db:"provider_id" json:"-"`
	AvatarURL  *string   `db:"avatar_url" json:"avatarUrl,omitempty"`
}

func (u *User) IsGuest() bool {
	return u != nil && u.Provider != nil && *u.Provider == ProviderGuest
}
