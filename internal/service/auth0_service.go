package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/config"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/retry"
)

// tokenRefreshMargin is how long before expiry a cached management token is
// considered stale
const tokenRefreshMargin = 5 * time.Minute

// defaultTokenLifetime is assumed when the token carries no exp claim
const defaultTokenLifetime = 24 * time.Hour

// managementService is the concrete implementation of ManagementService.
// The machine-to-machine token is cached behind a mutex; the cache is
// read-mostly and refreshed with a conservative margin.
type managementService struct {
	baseURL      string
	clientID     string
	clientSecret string
	audience     string

	http    *http.Client
	tracker Tracker
	retry   retry.Policy
	log     zerolog.Logger

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time

	now func() time.Time
}

// NewManagementService creates a client for the Auth0 Management API
func NewManagementService(cfg *config.Auth0Config, tracker Tracker, log zerolog.Logger) ManagementService {
	return NewManagementServiceWithBaseURL("https://"+cfg.Domain, cfg, tracker, log)
}

// NewManagementServiceWithBaseURL is NewManagementService against an explicit
// endpoint, used to point tests at a local server
func NewManagementServiceWithBaseURL(baseURL string, cfg *config.Auth0Config, tracker Tracker, log zerolog.Logger) ManagementService {
	return &managementService{
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		audience:     cfg.MgmtAudience,
		http:         &http.Client{Timeout: 15 * time.Second},
		tracker:      tracker,
		retry:        retry.UpstreamPolicy(),
		log:          log.With().Str("service", "auth0").Logger(),
		now:          time.Now,
	}
}

// ensureToken returns the cached management token, requesting a fresh one via
// the client-credentials grant when the cached one is absent or near expiry
func (s *managementService) ensureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.tokenExpiresAt.After(s.now().Add(tokenRefreshMargin)) {
		return s.token, nil
	}

	s.tracker.Track(ctx, models.APISourceAuth0)

	body, err := json.Marshal(map[string]string{
		"client_id":     s.clientID,
		"client_secret": s.clientSecret,
		"audience":      s.audience,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}

	var grant struct {
		AccessToken string `json:"access_token"`
	}
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.baseURL+"/oauth/token", bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			return fmt.Errorf("token request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
			if resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		return json.NewDecoder(resp.Body).Decode(&grant)
	})
	if err != nil {
		return "", err
	}
	if grant.AccessToken == "" {
		return "", fmt.Errorf("no access token received")
	}

	s.token = grant.AccessToken
	s.tokenExpiresAt = s.tokenExpiry(grant.AccessToken)

	s.log.Debug().Time("expires_at", s.tokenExpiresAt).Msg("Management token refreshed")
	return s.token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// was just received over TLS from the issuer itself
func (s *managementService) tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return s.now().Add(defaultTokenLifetime)
}

// GetUserByEmail queries the management API for a principal by email.
// Returns nil when no principal matches.
func (s *managementService) GetUserByEmail(ctx context.Context, email string) (*models.Auth0User, error) {
	s.tracker.Track(ctx, models.APISourceAuth0)

	q := url.Values{}
	q.Set("email", email)

	var users []models.Auth0User
	if err := s.get(ctx, "/api/v2/users-by-email?"+q.Encode(), &users); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// GetUserRoles lists the role claims assigned to a principal. An empty slice
// is a valid result (unassigned user).
func (s *managementService) GetUserRoles(ctx context.Context, userID string) ([]models.Auth0Role, error) {
	s.tracker.Track(ctx, models.APISourceAuth0)

	var roles []models.Auth0Role
	path := "/api/v2/users/" + url.PathEscape(userID) + "/roles"
	if err := s.get(ctx, path, &roles); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

// SetStripeCustomerID writes the payment-customer id into the principal's
// app_metadata, the one writable field this system owns
func (s *managementService) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	s.tracker.Track(ctx, models.APISourceAuth0)

	payload := map[string]models.Auth0AppMetadata{
		"app_metadata": {StripeCustomerID: customerID},
	}
	path := "/api/v2/users/" + url.PathEscape(userID)
	if err := s.request(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}
	return nil
}

// DirectusRoleForAuth0Role maps an Auth0 role id to its Directus role id.
// Returns "" when the role id is unrecognized.
func (s *managementService) DirectusRoleForAuth0Role(roleID string) string {
	for name, id := range models.Auth0RoleIDs {
		if id == roleID {
			return models.DirectusRoleIDs[name]
		}
	}
	return ""
}

// GetFullUserDetails composes the principal lookup, role listing and role
// mapping. A principal with no role claims defaults to the regular role;
// otherwise only the highest-priority claim is mapped, and an unmapped claim
// also falls back to regular.
func (s *managementService) GetFullUserDetails(ctx context.Context, email string) (*models.UserDetails, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.log.Info().Str("email", email).Msg("No Auth0 user found")
		return &models.UserDetails{Roles: []models.Auth0Role{}}, nil
	}

	roles, err := s.GetUserRoles(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	if len(roles) == 0 {
		return &models.UserDetails{
			User:           user,
			Roles:          []models.Auth0Role{},
			DirectusRoleID: models.DirectusRoleIDs[models.RoleRegular],
		}, nil
	}

	held := make(map[string]bool, len(roles))
	for _, r := range roles {
		held[r.ID] = true
	}

	directusRoleID := ""
	for _, name := range models.RolePriority {
		if held[models.Auth0RoleIDs[name]] {
			directusRoleID = s.DirectusRoleForAuth0Role(models.Auth0RoleIDs[name])
			break
		}
	}
	if directusRoleID == "" {
		directusRoleID = models.DirectusRoleIDs[models.RoleRegular]
	}

	return &models.UserDetails{
		User:           user,
		Roles:          roles,
		DirectusRoleID: directusRoleID,
	}, nil
}

func (s *managementService) get(ctx context.Context, path string, out interface{}) error {
	return s.request(ctx, http.MethodGet, path, nil, out)
}

func (s *managementService) request(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("management API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("management API returned status %d: %s", resp.StatusCode, excerpt)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode management API response: %w", err)
		}
	}
	return nil
}
