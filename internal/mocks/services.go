package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/service"
)

// MockTracker records tracked sources in memory
type MockTracker struct {
	mu    sync.Mutex
	Calls []models.APISource
}

// Verify interface compliance
var _ service.Tracker = (*MockTracker)(nil)

func NewMockTracker() *MockTracker {
	return &MockTracker{Calls: make([]models.APISource, 0)}
}

func (m *MockTracker) Track(ctx context.Context, source models.APISource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, source)
}

func (m *MockTracker) CountBySource(ctx context.Context) (map[models.APISource]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.APISource]int)
	for _, source := range m.Calls {
		counts[source]++
	}
	return counts, nil
}

// CountOf returns how many calls were tracked for a single source
func (m *MockTracker) CountOf(source models.APISource) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.Calls {
		if s == source {
			count++
		}
	}
	return count
}

// MockManagementService is a configurable in-memory ManagementService.
// Users are keyed by email, roles by Auth0 user ID.
type MockManagementService struct {
	Users          map[string]*models.Auth0User
	Roles          map[string][]models.Auth0Role
	MetadataWrites map[string]string

	GetUserByEmailFunc      func(ctx context.Context, email string) (*models.Auth0User, error)
	GetUserRolesFunc        func(ctx context.Context, userID string) ([]models.Auth0Role, error)
	GetFullUserDetailsFunc  func(ctx context.Context, email string) (*models.UserDetails, error)
	SetStripeCustomerIDFunc func(ctx context.Context, userID, customerID string) error
}

// Verify interface compliance
var _ service.ManagementService = (*MockManagementService)(nil)

func NewMockManagementService() *MockManagementService {
	return &MockManagementService{
		Users:          make(map[string]*models.Auth0User),
		Roles:          make(map[string][]models.Auth0Role),
		MetadataWrites: make(map[string]string),
	}
}

func (m *MockManagementService) GetUserByEmail(ctx context.Context, email string) (*models.Auth0User, error) {
	if m.GetUserByEmailFunc != nil {
		return m.GetUserByEmailFunc(ctx, email)
	}
	return m.Users[email], nil
}

func (m *MockManagementService) GetUserRoles(ctx context.Context, userID string) ([]models.Auth0Role, error) {
	if m.GetUserRolesFunc != nil {
		return m.GetUserRolesFunc(ctx, userID)
	}
	return m.Roles[userID], nil
}

func (m *MockManagementService) GetFullUserDetails(ctx context.Context, email string) (*models.UserDetails, error) {
	if m.GetFullUserDetailsFunc != nil {
		return m.GetFullUserDetailsFunc(ctx, email)
	}
	user, err := m.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &models.UserDetails{Roles: []models.Auth0Role{}}, nil
	}
	roles, err := m.GetUserRoles(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []models.Auth0Role{}
	}

	directusRoleID := models.DirectusRoleIDs[models.RoleRegular]
	for _, name := range models.RolePriority {
		auth0ID := models.Auth0RoleIDs[name]
		for _, role := range roles {
			if role.ID == auth0ID {
				directusRoleID = models.DirectusRoleIDs[name]
				return &models.UserDetails{User: user, Roles: roles, DirectusRoleID: directusRoleID}, nil
			}
		}
	}
	return &models.UserDetails{User: user, Roles: roles, DirectusRoleID: directusRoleID}, nil
}

func (m *MockManagementService) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	if m.SetStripeCustomerIDFunc != nil {
		return m.SetStripeCustomerIDFunc(ctx, userID, customerID)
	}
	m.MetadataWrites[userID] = customerID
	if user := m.userByID(userID); user != nil {
		user.AppMetadata.StripeCustomerID = customerID
	}
	return nil
}

func (m *MockManagementService) DirectusRoleForAuth0Role(roleID string) string {
	for name, auth0ID := range models.Auth0RoleIDs {
		if auth0ID == roleID {
			return models.DirectusRoleIDs[name]
		}
	}
	return ""
}

func (m *MockManagementService) userByID(userID string) *models.Auth0User {
	for _, user := range m.Users {
		if user.UserID == userID {
			return user
		}
	}
	return nil
}

// MockCustomerService is an in-memory CustomerService keyed by customer ID
type MockCustomerService struct {
	mu        sync.Mutex
	Customers map[string]*models.Customer
	Created   []*models.Customer
	nextID    int

	FindCustomerByEmailFunc func(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomerFunc      func(ctx context.Context, email, auth0UserID string) (*models.Customer, error)
}

// Verify interface compliance
var _ service.CustomerService = (*MockCustomerService)(nil)

func NewMockCustomerService() *MockCustomerService {
	return &MockCustomerService{Customers: make(map[string]*models.Customer)}
}

func (m *MockCustomerService) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if m.FindCustomerByEmailFunc != nil {
		return m.FindCustomerByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, customer := range m.Customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	return nil, nil
}

func (m *MockCustomerService) FindCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Customers[id], nil
}

func (m *MockCustomerService) CreateCustomer(ctx context.Context, email, auth0UserID string) (*models.Customer, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, email, auth0UserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	customer := &models.Customer{
		ID:       fmt.Sprintf("cus_mock%d", m.nextID),
		Email:    email,
		Metadata: map[string]string{models.MetadataKeyAuth0UserID: auth0UserID},
	}
	m.Customers[customer.ID] = customer
	m.Created = append(m.Created, customer)
	return customer, nil
}

func (m *MockCustomerService) UpdateCustomer(ctx context.Context, id string, params *service.UpdateCustomerParams) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.Customers[id]
	if !ok {
		return nil, fmt.Errorf("no such customer: %s", id)
	}
	if params.Email != "" {
		customer.Email = params.Email
	}
	for k, v := range params.Metadata {
		if customer.Metadata == nil {
			customer.Metadata = make(map[string]string)
		}
		customer.Metadata[k] = v
	}
	return customer, nil
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Customers, id)
	return nil
}

// MockSyncCache is an in-memory SyncCache; by default every call is a miss
type MockSyncCache struct {
	mu      sync.Mutex
	Entries map[string]*models.SyncCacheEntry

	ShouldSyncFunc func(ctx context.Context, subject string) (bool, *models.SyncCacheEntry)
	RecordFunc     func(ctx context.Context, entry *models.SyncCacheEntry) error
}

// Verify interface compliance
var _ service.SyncCache = (*MockSyncCache)(nil)

func NewMockSyncCache() *MockSyncCache {
	return &MockSyncCache{Entries: make(map[string]*models.SyncCacheEntry)}
}

func (m *MockSyncCache) ShouldSync(ctx context.Context, subject string) (bool, *models.SyncCacheEntry) {
	if m.ShouldSyncFunc != nil {
		return m.ShouldSyncFunc(ctx, subject)
	}
	return true, nil
}

func (m *MockSyncCache) Record(ctx context.Context, entry *models.SyncCacheEntry) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries[entry.Subject] = entry
	return nil
}

// MockSyncService is a configurable SyncService for handler tests
type MockSyncService struct {
	SyncFunc func(ctx context.Context, session *auth.Session) (*models.SyncResult, error)
}

// Verify interface compliance
var _ service.SyncService = (*MockSyncService)(nil)

func (m *MockSyncService) Sync(ctx context.Context, session *auth.Session) (*models.SyncResult, error) {
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, session)
	}
	return &models.SyncResult{UserID: "mock-user"}, nil
}
