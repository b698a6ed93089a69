package repository

import (
	"context"
	"time"

	"github.com/zizcon/zizcon-api/internal/database"
	"github.com/zizcon/zizcon-api/internal/models"
)

// APICallRepository defines the interface for the append-only call ledger
type APICallRepository interface {
	Insert(ctx context.Context, record *models.APICallRecord) error
	Count(ctx context.Context) (int, error)
	CountBySource(ctx context.Context) (map[models.APISource]int, error)
}

// SyncCacheRepository defines the interface for the last-synced store
type SyncCacheRepository interface {
	Get(ctx context.Context, subject string) (*models.SyncCacheEntry, error)
	Put(ctx context.Context, entry *models.SyncCacheEntry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	APICall   APICallRepository
	SyncCache SyncCacheRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		APICall:   NewAPICallRepo(db),
		SyncCache: NewSyncCacheRepo(db),
	}
}
