package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/zizcon/zizcon-api/internal/database"
	"github.com/zizcon/zizcon-api/internal/models"
)

// syncCacheRepo is the concrete implementation of SyncCacheRepository
type syncCacheRepo struct {
	db *database.DB
}

// NewSyncCacheRepo creates a new sync cache repository
func NewSyncCacheRepo(db *database.DB) SyncCacheRepository {
	return &syncCacheRepo{db: db}
}

// Get retrieves the last-synced entry for a subject, nil if none recorded
func (r *syncCacheRepo) Get(ctx context.Context, subject string) (*models.SyncCacheEntry, error) {
	query := `
		SELECT subject, user_id, is_new, directus_role_id, stripe_customer_id, synced_at
		FROM sync_cache WHERE subject = ?
	`
	var entry models.SyncCacheEntry
	var isNew int
	var syncedAt int64
	err := r.db.QueryRowContext(ctx, query, subject).Scan(
		&entry.Subject, &entry.UserID, &isNew,
		&entry.DirectusRoleID, &entry.StripeCustomerID, &syncedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry.IsNew = isNew != 0
	entry.SyncedAt = time.UnixMilli(syncedAt)
	return &entry, nil
}

// Put upserts the entry for a subject
func (r *syncCacheRepo) Put(ctx context.Context, entry *models.SyncCacheEntry) error {
	query := `
		INSERT INTO sync_cache (subject, user_id, is_new, directus_role_id, stripe_customer_id, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject) DO UPDATE SET
			user_id = excluded.user_id,
			is_new = excluded.is_new,
			directus_role_id = excluded.directus_role_id,
			stripe_customer_id = excluded.stripe_customer_id,
			synced_at = excluded.synced_at
	`
	isNew := 0
	if entry.IsNew {
		isNew = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		entry.Subject, entry.UserID, isNew,
		entry.DirectusRoleID, entry.StripeCustomerID, entry.SyncedAt.UnixMilli(),
	)
	return err
}

// DeleteOlderThan removes entries last synced before the cutoff
func (r *syncCacheRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_cache WHERE synced_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
