package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/metrics"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// LivePublisher fans accepted live documents out to subscribers.
type LivePublisher interface {
	PublishState(leagueID uuid.UUID, state livegame.State)
	PublishDeleted(leagueID uuid.UUID)
}

type LiveGameService struct {
	store     *store.LiveGameStore
	publisher LivePublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewLiveGameService(store *store.LiveGameStore, publisher LivePublisher, m *metrics.Metrics) *LiveGameService {
	return &LiveGameService{store: store, publisher: publisher, metrics: m, now: time.Now}
}

// GetState returns the stored document, sanitized again on the way out. A
// league without a document gets an empty one stamped 0 so that any local
// state of a client is newer.
func (s *LiveGameService) GetState(ctx context.Context, ac access.Context) (livegame.State, error) {
	row, err := s.store.GetLiveGame(ctx, ac.LeagueID)
	if errors.Is(err, sql.ErrNoRows) {
		st := livegame.Empty(s.now())
		st.LastUpdated = 0
		return st, nil
	}
	if err != nil {
		return livegame.State{}, fmt.Errorf("failed to get live game: %w", err)
	}
	return livegame.Sanitize(row.State, s.now()), nil
}

// PutState decodes, sanitizes and stores raw as the league's live document.
// The server never compares timestamps: the last write is kept.
func (s *LiveGameService) PutState(ctx context.Context, ac access.Context, raw []byte) (livegame.State, error) {
	now := s.now()
	st, err := livegame.Decode(raw, now)
	if err != nil {
		return livegame.State{}, err
	}

	encoded, err := json.Marshal(st)
	if err != nil {
		return livegame.State{}, fmt.Errorf("failed to encode live game: %w", err)
	}
	row := &store.LiveGameRow{
		LeagueID:  ac.LeagueID,
		State:     types.JSONText(encoded),
		UpdatedAt: now.UTC(),
	}
	if err := s.store.UpsertLiveGame(ctx, row); err != nil {
		return livegame.State{}, fmt.Errorf("failed to save live game: %w", err)
	}

	s.metrics.LiveStateWritten(string(ac.Mode))
	if s.publisher != nil {
		s.publisher.PublishState(ac.LeagueID, st)
	}
	return st, nil
}

func (s *LiveGameService) DeleteState(ctx context.Context, ac access.Context) error {
	deleted, err := s.store.DeleteLiveGame(ctx, ac.LeagueID)
	if err != nil {
		return fmt.Errorf("failed to delete live game: %w", err)
	}
	if deleted && s.publisher != nil {
		s.publisher.PublishDeleted(ac.LeagueID)
	}
	return nil
}
