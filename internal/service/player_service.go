package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/league"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/google/uuid"
)

type PlayerService struct {
	store *store.PlayerStore
}

func NewPlayerService(store *store.PlayerStore) *PlayerService {
	return &PlayerService{store: store}
}

func (s *PlayerService) ListPlayers(ctx context.Context, ac access.Context) ([]league.Player, error) {
	players, err := s.store.ListPlayers(ctx, ac.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (s *PlayerService) AddPlayer(ctx context.Context, ac access.Context, name string) (*league.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	p := &league.Player{
		ID:        uuid.New(),
		LeagueID:  ac.LeagueID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}

func (s *PlayerService) RenamePlayer(ctx context.Context, ac access.Context, rawID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("Name is required")
	}
	p, err := s.owned(ctx, ac, rawID)
	if err != nil {
		return err
	}
	if err := s.store.RenamePlayer(ctx, p.ID, name); err != nil {
		return fmt.Errorf("failed to rename player: %w", err)
	}
	return nil
}

func (s *PlayerService) DeletePlayer(ctx context.Context, ac access.Context, rawID string) error {
	p, err := s.owned(ctx, ac, rawID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlayer(ctx, p.ID); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return nil
}

// owned loads a player and checks it belongs to the resolved league.
func (s *PlayerService) owned(ctx context.Context, ac access.Context, rawID string) (*league.Player, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.NotFound("Player not found")
	}
	p, err := s.store.GetPlayer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Player not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	if p.LeagueID != ac.LeagueID {
		if ac.Public() {
			return nil, apperr.Forbidden("Invalid token")
		}
		return nil, apperr.Forbidden("Forbidden")
	}
	return p, nil
}
