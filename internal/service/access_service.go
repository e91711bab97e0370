package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/google/uuid"
)

type AccessService struct {
	store *store.LeagueStore
}

func NewAccessService(store *store.LeagueStore) *AccessService {
	return &AccessService{store: store}
}

// Resolve picks the league a data request is about. A league id needs a
// signed in member, a public token needs nothing else. When both are given
// the league id wins.
func (s *AccessService) Resolve(ctx context.Context, leagueID, publicToken string, userID uuid.UUID) (access.Context, error) {
	switch {
	case leagueID != "":
		return s.Member(ctx, leagueID, userID)
	case publicToken != "":
		return s.Public(ctx, publicToken)
	default:
		return access.Context{}, apperr.Validation("Missing league identifier")
	}
}

// Member checks that userID belongs to the league.
func (s *AccessService) Member(ctx context.Context, rawLeagueID string, userID uuid.UUID) (access.Context, error) {
	if userID == uuid.Nil {
		return access.Context{}, apperr.Unauthorized("Unauthorized")
	}
	leagueID, err := uuid.Parse(rawLeagueID)
	if err != nil {
		return access.Context{}, apperr.Forbidden("Forbidden")
	}

	role, err := s.store.GetMemberRole(ctx, leagueID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Context{}, apperr.Forbidden("Forbidden")
	}
	if err != nil {
		return access.Context{}, fmt.Errorf("failed to check league membership: %w", err)
	}

	return access.Context{
		LeagueID: leagueID,
		Mode:     access.ModeAuthenticated,
		UserID:   userID,
		Role:     role,
	}, nil
}

// Admin is Member restricted to league admins.
func (s *AccessService) Admin(ctx context.Context, rawLeagueID string, userID uuid.UUID) (access.Context, error) {
	ac, err := s.Member(ctx, rawLeagueID, userID)
	if err != nil {
		return ac, err
	}
	if ac.Role != league.RoleAdmin {
		return access.Context{}, apperr.Forbidden("Forbidden")
	}
	return ac, nil
}

func (s *AccessService) Public(ctx context.Context, token string) (access.Context, error) {
	l, err := s.store.GetLeagueByPublicToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Context{}, apperr.NotFound("League not found")
	}
	if err != nil {
		return access.Context{}, fmt.Errorf("failed to resolve public token: %w", err)
	}
	return access.Context{LeagueID: l.ID, Mode: access.ModePublic}, nil
}
