package models

import "time"

// SyncResult is the outcome of one reconciliation invocation
type SyncResult struct {
	UserID           string      `json:"userId"`
	IsNew            bool        `json:"isNew"`
	Auth0Roles       []Auth0Role `json:"auth0Roles,omitempty"`
	DirectusRoleID   string      `json:"directusRoleId,omitempty"`
	StripeCustomerID string      `json:"stripeCustomerId,omitempty"`
	Skipped          bool        `json:"skipped,omitempty"`
}

// SyncCacheEntry records the last successful reconciliation for a subject.
// Entries are written only after a successful attempt, so a cached entry can
// answer a suppressed sync with the previous result.
type SyncCacheEntry struct {
	Subject          string    `db:"subject"`
	UserID           string    `db:"user_id"`
	IsNew            bool      `db:"is_new"`
	DirectusRoleID   string    `db:"directus_role_id"`
	StripeCustomerID string    `db:"stripe_customer_id"`
	SyncedAt         time.Time `db:"synced_at"`
}

// Result converts a cache entry back into the sync result it recorded
func (e *SyncCacheEntry) Result() *SyncResult {
	// A suppressed call is never a first sync, whatever the entry recorded
	return &SyncResult{
		UserID:           e.UserID,
		IsNew:            false,
		DirectusRoleID:   e.DirectusRoleID,
		StripeCustomerID: e.StripeCustomerID,
		Skipped:          true,
	}
}
