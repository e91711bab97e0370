package store

import (
	"context"

	users "github.com/AdamBeresnev/floorball-scorekeeper/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserStore keeps the accounts behind league memberships. An account is
// identified by a (provider, provider_id) pair: an OAuth provider and its
// subject, or the guest provider and the account's own id.
type UserStore struct {
	db *sqlx.DB
}

const (
	userColumns = "id, email, username, provider, provider_id, avatar_url, created_at"

	selectUserByIDQuery       = "SELECT " + userColumns + " FROM users WHERE id = ?"
	selectUserByIdentityQuery = "SELECT " + userColumns + " FROM users WHERE provider = ? AND provider_id = ?"
	insertUserQuery           = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url)
		VALUES (:id, :email, :username, :provider, :provider_id, :avatar_url)
	`
	updateProfileQuery = "UPDATE users SET username = :username, avatar_url = :avatar_url WHERE id = :id"
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// GetUser returns sql.ErrNoRows for an unknown id, which is how a bearer
// token or session cookie for a removed account is detected.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var u users.User
	if err := s.db.GetContext(ctx, &u, selectUserByIDQuery, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByIdentity finds the account a provider subject signed in as.
func (s *UserStore) GetUserByIdentity(ctx context.Context, provider, subject string) (*users.User, error) {
	var u users.User
	if err := s.db.GetContext(ctx, &u, selectUserByIdentityQuery, provider, subject); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser fails on a second account for the same identity.
func (s *UserStore) CreateUser(ctx context.Context, u *users.User) error {
	_, err := s.db.NamedExecContext(ctx, insertUserQuery, u)
	return err
}

// UpdateProfile stores the display name and avatar a provider reported.
func (s *UserStore) UpdateProfile(ctx context.Context, u *users.User) error {
	res, err := s.db.NamedExecContext(ctx, updateProfileQuery, u)
	if err != nil {
		return err
	}
	return expectRow(res)
}
