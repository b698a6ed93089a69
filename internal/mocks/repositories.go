package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/repository"
)

// MockAPICallRepository is an in-memory implementation of APICallRepository
type MockAPICallRepository struct {
	mu         sync.Mutex
	Records    []*models.APICallRecord
	InsertFunc func(ctx context.Context, record *models.APICallRecord) error
}

// Verify interface compliance
var _ repository.APICallRepository = (*MockAPICallRepository)(nil)

func NewMockAPICallRepository() *MockAPICallRepository {
	return &MockAPICallRepository{Records: make([]*models.APICallRecord, 0)}
}

func (m *MockAPICallRepository) Insert(ctx context.Context, record *models.APICallRecord) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockAPICallRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records), nil
}

func (m *MockAPICallRepository) CountBySource(ctx context.Context) (map[models.APISource]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.APISource]int)
	for _, r := range m.Records {
		counts[r.Source]++
	}
	return counts, nil
}

// MockSyncCacheRepository is an in-memory implementation of SyncCacheRepository
type MockSyncCacheRepository struct {
	mu      sync.Mutex
	Entries map[string]*models.SyncCacheEntry
	GetFunc func(ctx context.Context, subject string) (*models.SyncCacheEntry, error)
	PutFunc func(ctx context.Context, entry *models.SyncCacheEntry) error
}

// Verify interface compliance
var _ repository.SyncCacheRepository = (*MockSyncCacheRepository)(nil)

func NewMockSyncCacheRepository() *MockSyncCacheRepository {
	return &MockSyncCacheRepository{Entries: make(map[string]*models.SyncCacheEntry)}
}

func (m *MockSyncCacheRepository) Get(ctx context.Context, subject string) (*models.SyncCacheEntry, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, subject)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.Entries[subject]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (m *MockSyncCacheRepository) Put(ctx context.Context, entry *models.SyncCacheEntry) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.Entries[entry.Subject] = &copied
	return nil
}

func (m *MockSyncCacheRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for subject, entry := range m.Entries {
		if entry.SyncedAt.Before(cutoff) {
			delete(m.Entries, subject)
			deleted++
		}
	}
	return deleted, nil
}

// FailingAPICallRepository always fails, for tracker self-disable tests
type FailingAPICallRepository struct{}

var _ repository.APICallRepository = (*FailingAPICallRepository)(nil)

func (f *FailingAPICallRepository) Insert(ctx context.Context, record *models.APICallRecord) error {
	return fmt.Errorf("disk full")
}

func (f *FailingAPICallRepository) Count(ctx context.Context) (int, error) {
	return 0, fmt.Errorf("disk full")
}

func (f *FailingAPICallRepository) CountBySource(ctx context.Context) (map[models.APISource]int, error) {
	return nil, fmt.Errorf("disk full")
}
