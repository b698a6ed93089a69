package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/repository"
)

// trackingService is the concrete implementation of Tracker. Writes are
// best-effort: the first storage failure disables the tracker for the rest
// of the process lifetime rather than adding noise to every request.
type trackingService struct {
	repo     repository.APICallRepository
	disabled atomic.Bool
	log      zerolog.Logger
}

// NewTrackingService creates a new Tracker. A nil repository (local store
// unavailable) yields a tracker that is disabled from the start.
func NewTrackingService(repo repository.APICallRepository, log zerolog.Logger) Tracker {
	t := &trackingService{
		repo: repo,
		log:  log.With().Str("service", "tracking").Logger(),
	}
	if repo == nil {
		t.disabled.Store(true)
		t.log.Warn().Msg("API call tracking disabled, local store not available")
	}
	return t
}

// Track appends one call record. Never raises to the caller.
func (t *trackingService) Track(ctx context.Context, source models.APISource) {
	if t.disabled.Load() {
		return
	}

	record := &models.APICallRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Source:    source,
	}

	if err := t.repo.Insert(ctx, record); err != nil {
		t.disabled.Store(true)
		t.log.Error().Err(err).Msg("Failed to track API call, disabling tracker")
		return
	}

	t.log.Debug().
		Str("id", record.ID).
		Str("source", string(source)).
		Msg("API call tracked")
}

// CountBySource returns tracked call counts per external API
func (t *trackingService) CountBySource(ctx context.Context) (map[models.APISource]int, error) {
	if t.disabled.Load() {
		return map[models.APISource]int{}, nil
	}
	return t.repo.CountBySource(ctx)
}
