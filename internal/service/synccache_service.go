package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/repository"
)

// syncCacheService is the concrete implementation of SyncCache. With a nil
// repository it degrades to a pass-through where every request is a miss;
// this is a best-effort throttle, not a distributed lock.
type syncCacheService struct {
	repo     repository.SyncCacheRepository
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewSyncCacheService creates a sync cache with the given suppression interval
func NewSyncCacheService(repo repository.SyncCacheRepository, interval time.Duration, log zerolog.Logger) SyncCache {
	return &syncCacheService{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("service", "sync-cache").Logger(),
	}
}

// NewSyncCacheServiceWithClock is NewSyncCacheService with an injectable
// clock for deterministic tests
func NewSyncCacheServiceWithClock(repo repository.SyncCacheRepository, interval time.Duration, now func() time.Time, log zerolog.Logger) SyncCache {
	return &syncCacheService{repo: repo, interval: interval, now: now, log: log}
}

// ShouldSync reports true when no reconciliation was recorded for the subject
// or the recorded one is older than the interval. Read failures count as a
// miss; suppression must never block a sync.
func (s *syncCacheService) ShouldSync(ctx context.Context, subject string) (bool, *models.SyncCacheEntry) {
	if s.repo == nil {
		return true, nil
	}

	entry, err := s.repo.Get(ctx, subject)
	if err != nil {
		s.log.Warn().Err(err).Str("subject", subject).Msg("Sync cache read failed")
		return true, nil
	}
	if entry == nil {
		return true, nil
	}
	return s.now().Sub(entry.SyncedAt) >= s.interval, entry
}

// Record stores the outcome of a successful reconciliation, stamped with the
// current time
func (s *syncCacheService) Record(ctx context.Context, entry *models.SyncCacheEntry) error {
	if s.repo == nil {
		return nil
	}
	entry.SyncedAt = s.now()
	return s.repo.Put(ctx, entry)
}
