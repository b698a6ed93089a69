package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/mocks"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/service"
)

func TestSyncCache_MissWithoutRecord(t *testing.T) {
	repo := mocks.NewMockSyncCacheRepository()
	cache := service.NewSyncCacheService(repo, time.Hour, zerolog.Nop())

	should, entry := cache.ShouldSync(context.Background(), "auth0|abc123")
	if !should {
		t.Error("Expected a miss for an unknown subject")
	}
	if entry != nil {
		t.Errorf("Expected no entry, got %+v", entry)
	}
}

func TestSyncCache_SuppressesWithinInterval(t *testing.T) {
	repo := mocks.NewMockSyncCacheRepository()
	now := time.Now()
	clock := func() time.Time { return now }
	cache := service.NewSyncCacheServiceWithClock(repo, time.Hour, clock, zerolog.Nop())
	ctx := context.Background()

	if err := cache.Record(ctx, &models.SyncCacheEntry{
		Subject: "auth0|abc123",
		UserID:  "cms-user-1",
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	should, entry := cache.ShouldSync(ctx, "auth0|abc123")
	if should {
		t.Error("Expected suppression right after a recorded sync")
	}
	if entry == nil || entry.UserID != "cms-user-1" {
		t.Errorf("Expected the recorded entry, got %+v", entry)
	}

	// Still inside the window
	now = now.Add(59 * time.Minute)
	if should, _ := cache.ShouldSync(ctx, "auth0|abc123"); should {
		t.Error("Expected suppression inside the interval")
	}

	// Past the window
	now = now.Add(2 * time.Minute)
	if should, _ := cache.ShouldSync(ctx, "auth0|abc123"); !should {
		t.Error("Expected a sync once the interval elapsed")
	}
}

func TestSyncCache_ReadFailureCountsAsMiss(t *testing.T) {
	repo := mocks.NewMockSyncCacheRepository()
	repo.GetFunc = func(ctx context.Context, subject string) (*models.SyncCacheEntry, error) {
		return nil, fmt.Errorf("disk full")
	}
	cache := service.NewSyncCacheService(repo, time.Hour, zerolog.Nop())

	should, entry := cache.ShouldSync(context.Background(), "auth0|abc123")
	if !should {
		t.Error("A broken cache must never suppress a sync")
	}
	if entry != nil {
		t.Errorf("Expected no entry on read failure, got %+v", entry)
	}
}

func TestSyncCache_NilRepositoryPassesThrough(t *testing.T) {
	cache := service.NewSyncCacheService(nil, time.Hour, zerolog.Nop())
	ctx := context.Background()

	if should, _ := cache.ShouldSync(ctx, "auth0|abc123"); !should {
		t.Error("Expected pass-through without a store")
	}
	if err := cache.Record(ctx, &models.SyncCacheEntry{Subject: "auth0|abc123"}); err != nil {
		t.Errorf("Record without a store must be a no-op, got: %v", err)
	}
}
