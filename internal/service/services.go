package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/config"
	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/repository"
)

// Tracker is the fire-and-forget ledger of calls to external APIs. Track
// never fails; a broken ledger must not destabilize the request path.
type Tracker interface {
	Track(ctx context.Context, source models.APISource)
	CountBySource(ctx context.Context) (map[models.APISource]int, error)
}

// ManagementService defines the interface to the identity provider's
// machine-to-machine management API
type ManagementService interface {
	GetUserByEmail(ctx context.Context, email string) (*models.Auth0User, error)
	GetUserRoles(ctx context.Context, userID string) ([]models.Auth0Role, error)
	GetFullUserDetails(ctx context.Context, email string) (*models.UserDetails, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	DirectusRoleForAuth0Role(roleID string) string
}

// CustomerService defines the interface for idempotent customer-record
// reconciliation against the payment processor
type CustomerService interface {
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindCustomerByID(ctx context.Context, id string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, email, auth0UserID string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id string, params *UpdateCustomerParams) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// UpdateCustomerParams is a partial customer update
type UpdateCustomerParams struct {
	Email    string
	Metadata map[string]string
}

// SyncCache suppresses redundant reconciliation traffic within a time window
type SyncCache interface {
	// ShouldSync reports whether a reconciliation should run for the subject.
	// When it returns false, the accompanying entry holds the last result.
	ShouldSync(ctx context.Context, subject string) (bool, *models.SyncCacheEntry)
	// Record stores a successful reconciliation outcome for the subject
	Record(ctx context.Context, entry *models.SyncCacheEntry) error
}

// SyncService is the reconciliation orchestrator
type SyncService interface {
	Sync(ctx context.Context, session *auth.Session) (*models.SyncResult, error)
}

// Services holds all service interfaces
type Services struct {
	Tracker    Tracker
	Management ManagementService
	Customers  CustomerService // nil when the Stripe integration is disabled
	Cache      SyncCache
	Sync       SyncService
}

// NewServices creates all services. The repositories may be nil when the
// local store failed to open; tracking and cache suppression then degrade to
// no-ops instead of blocking authentication.
func NewServices(repos *repository.Repositories, cms *directus.Client, cfg *config.Config, log zerolog.Logger) *Services {
	var apiCallRepo repository.APICallRepository
	var syncCacheRepo repository.SyncCacheRepository
	if repos != nil {
		apiCallRepo = repos.APICall
		syncCacheRepo = repos.SyncCache
	}

	tracker := NewTrackingService(apiCallRepo, log)
	mgmt := NewManagementService(&cfg.Auth0, tracker, log)

	var customers CustomerService
	if cfg.StripeEnabled() {
		customers = NewCustomerService(cfg.Stripe.SecretKey, tracker, log)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, customer sync disabled")
	}

	cache := NewSyncCacheService(syncCacheRepo, cfg.Sync.Interval, log)
	sync := NewSyncService(cms, mgmt, customers, cache, tracker, log)

	return &Services{
		Tracker:    tracker,
		Management: mgmt,
		Customers:  customers,
		Cache:      cache,
		Sync:       sync,
	}
}
