package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	users "github.com/AdamBeresnev/floorball-scorekeeper/internal/user"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

type UserService struct {
	store *store.UserStore
}

func NewUserService(store *store.UserStore) *UserService {
	return &UserService{store: store}
}

// FindOrCreateUserByProvider maps an OAuth identity onto a local user,
// refreshing the display name and avatar when the provider reports new ones.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	username := gothUser.NickName
	if username == "" {
		username = gothUser.Name
	}

	user, err := s.store.GetUserByIdentity(ctx, gothUser.Provider, gothUser.UserID)
	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != username {
			user.Username = username
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			if err := s.store.UpdateProfile(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to update user: %w", err)
			}
		}
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   username,
			Provider:   utils.Ptr(gothUser.Provider),
			ProviderID: utils.Ptr(gothUser.UserID),
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		if err := s.store.CreateUser(ctx, newUser); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return newUser, nil
	}

	return nil, err
}

// CreateGuestUser makes a fresh account for one guest login. Guests never
// share an account, so leagues created by one guest stay theirs alone.
func (s *UserService) CreateGuestUser(ctx context.Context) (*users.User, error) {
	id := uuid.New()
	guest := &users.User{
		ID:         id,
		Username:   "Guest " + id.String()[:4],
		Provider:   utils.Ptr(users.ProviderGuest),
		ProviderID: utils.Ptr(id.String()),
	}
	if err := s.store.CreateUser(ctx, guest); err != nil {
		return nil, fmt.Errorf("failed to create guest user: %w", err)
	}
	return guest, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}
