package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/models"
)

// syncService is the reconciliation orchestrator. One invocation guarantees,
// eventually-consistently, that a CMS user exists for the identity's email,
// that its role matches the identity's highest-priority role, and that a
// payment-customer record exists and is cross-linked.
//
// There is no rollback: a CMS user created before a later step fails stays
// created. Repeating the invocation converges (at-least-once design).
type syncService struct {
	cms       *directus.Client
	mgmt      ManagementService
	customers CustomerService // nil when the integration is disabled
	cache     SyncCache
	tracker   Tracker
	log       zerolog.Logger
}

// NewSyncService creates the reconciliation orchestrator
func NewSyncService(cms *directus.Client, mgmt ManagementService, customers CustomerService, cache SyncCache, tracker Tracker, log zerolog.Logger) SyncService {
	return &syncService{
		cms:       cms,
		mgmt:      mgmt,
		customers: customers,
		cache:     cache,
		tracker:   tracker,
		log:       log.With().Str("service", "sync").Logger(),
	}
}

// Sync runs one reconciliation for the authenticated session. Failures while
// provisioning a brand-new identity propagate; failures syncing an existing
// user are logged and swallowed so they never block the session.
func (s *syncService) Sync(ctx context.Context, session *auth.Session) (*models.SyncResult, error) {
	if should, cached := s.cache.ShouldSync(ctx, session.Subject); !should && cached != nil {
		s.log.Debug().Str("subject", session.Subject).Msg("Sync suppressed by cache")
		return cached.Result(), nil
	}

	userID, isNew, err := s.ensureUser(ctx, session)
	if err != nil {
		return nil, err
	}

	details, err := s.syncRoles(ctx, session.Email, userID)
	if err != nil {
		if isNew {
			return nil, fmt.Errorf("role sync for new user failed: %w", err)
		}
		s.log.Error().Err(err).
			Str("email", session.Email).
			Str("user_id", userID).
			Msg("Role sync failed for existing user")
		details = &models.UserDetails{Roles: []models.Auth0Role{}}
	}

	stripeCustomerID, err := s.syncCustomer(ctx, session, details.User)
	if err != nil {
		if isNew {
			return nil, fmt.Errorf("customer sync for new user failed: %w", err)
		}
		s.log.Error().Err(err).
			Str("email", session.Email).
			Msg("Customer sync failed for existing user")
	}

	result := &models.SyncResult{
		UserID:           userID,
		IsNew:            isNew,
		Auth0Roles:       details.Roles,
		DirectusRoleID:   details.DirectusRoleID,
		StripeCustomerID: stripeCustomerID,
	}

	if err := s.cache.Record(ctx, &models.SyncCacheEntry{
		Subject:          session.Subject,
		UserID:           userID,
		IsNew:            isNew,
		DirectusRoleID:   details.DirectusRoleID,
		StripeCustomerID: stripeCustomerID,
	}); err != nil {
		s.log.Warn().Err(err).Str("subject", session.Subject).Msg("Failed to record sync")
	}

	return result, nil
}

// ensureUser finds the CMS user for the session's email, creating it on
// first sync. A create losing the race against a concurrent first login is
// resolved by re-fetching; the CMS uniqueness constraint is authoritative.
func (s *syncService) ensureUser(ctx context.Context, session *auth.Session) (string, bool, error) {
	s.tracker.Track(ctx, models.APISourceDirectus)
	existing, err := s.cms.UsersByEmail(ctx, session.Email)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up CMS user: %w", err)
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	s.tracker.Track(ctx, models.APISourceDirectus)
	created, err := s.cms.CreateUser(ctx, &models.NewDirectusUser{
		Email: session.Email,
		// Random password, authentication happens through Auth0
		Password:           uuid.New().String(),
		Role:               models.DirectusRoleIDs[models.RoleRegular],
		Status:             "active",
		Provider:           "auth0",
		ExternalIdentifier: session.Subject,
		FirstName:          session.GivenName,
		LastName:           session.FamilyName,
	})
	if err != nil {
		if errors.Is(err, directus.ErrUserExists) {
			s.tracker.Track(ctx, models.APISourceDirectus)
			existing, err := s.cms.UsersByEmail(ctx, session.Email)
			if err != nil {
				return "", false, fmt.Errorf("failed to re-fetch CMS user after conflict: %w", err)
			}
			if existing == nil {
				return "", false, fmt.Errorf("CMS reported existing user but none found for %s", session.Email)
			}
			return existing.ID, false, nil
		}
		return "", false, fmt.Errorf("failed to create CMS user: %w", err)
	}

	s.log.Info().
		Str("user_id", created.ID).
		Str("email", session.Email).
		Msg("CMS user created")
	return created.ID, true, nil
}

// syncRoles updates the CMS user's role to match the identity's current
// highest-priority role. The update only runs on a mismatch, so repeated
// calls with unchanged roles are no-ops beyond the reads.
func (s *syncService) syncRoles(ctx context.Context, email, userID string) (*models.UserDetails, error) {
	s.tracker.Track(ctx, models.APISourceDirectus)
	current, err := s.cms.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read CMS user: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("CMS user %s not found", userID)
	}

	details, err := s.mgmt.GetFullUserDetails(ctx, email)
	if err != nil {
		return nil, err
	}
	if details.User == nil {
		s.log.Warn().Str("email", email).Msg("No Auth0 user for authenticated email, skipping role sync")
		return details, nil
	}
	if details.DirectusRoleID == "" {
		s.log.Warn().Str("email", email).Msg("No role mapping resolved, skipping role sync")
		return details, nil
	}

	if details.DirectusRoleID != current.Role {
		s.tracker.Track(ctx, models.APISourceDirectus)
		if err := s.cms.UpdateUserRole(ctx, userID, details.DirectusRoleID); err != nil {
			return nil, err
		}
		s.log.Info().
			Str("user_id", userID).
			Str("old_role", current.Role).
			Str("new_role", details.DirectusRoleID).
			Msg("CMS role updated")
	}

	return details, nil
}

// syncCustomer guarantees a payment-customer record exists and is linked to
// the identity via app_metadata. A pre-existing customer for the email is
// treated as authoritative and linked rather than rejected.
func (s *syncService) syncCustomer(ctx context.Context, session *auth.Session, user *models.Auth0User) (string, error) {
	if s.customers == nil || user == nil {
		return "", nil
	}

	if customerID := user.AppMetadata.StripeCustomerID; customerID != "" {
		customer, err := s.customers.FindCustomerByID(ctx, customerID)
		if err != nil {
			return "", err
		}
		if customer == nil {
			// Linked record vanished on the processor side, recreate it
			created, err := s.customers.CreateCustomer(ctx, session.Email, user.UserID)
			if err != nil {
				return "", err
			}
			if err := s.mgmt.SetStripeCustomerID(ctx, user.UserID, created.ID); err != nil {
				return "", err
			}
			s.log.Info().
				Str("customer_id", created.ID).
				Str("auth0_user_id", user.UserID).
				Msg("Stripe customer recreated")
			return created.ID, nil
		}
		if customer.Email != session.Email {
			if _, err := s.customers.UpdateCustomer(ctx, customer.ID, &UpdateCustomerParams{
				Email:    session.Email,
				Metadata: map[string]string{models.MetadataKeyAuth0UserID: user.UserID},
			}); err != nil {
				return "", err
			}
			s.log.Info().Str("customer_id", customer.ID).Msg("Stripe customer email refreshed")
		}
		return customer.ID, nil
	}

	existing, err := s.customers.FindCustomerByEmail(ctx, session.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		if err := s.mgmt.SetStripeCustomerID(ctx, user.UserID, existing.ID); err != nil {
			return "", err
		}
		s.log.Info().
			Str("customer_id", existing.ID).
			Str("auth0_user_id", user.UserID).
			Msg("Existing Stripe customer linked")
		return existing.ID, nil
	}

	created, err := s.customers.CreateCustomer(ctx, session.Email, user.UserID)
	if err != nil {
		return "", err
	}
	if err := s.mgmt.SetStripeCustomerID(ctx, user.UserID, created.ID); err != nil {
		return "", err
	}
	return created.ID, nil
}
