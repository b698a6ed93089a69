package models

// Auth0Role represents a role assigned to a principal in Auth0
type Auth0Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Auth0AppMetadata is the writable metadata bag on an Auth0 user. The
// stripe_customer_id field is the only one this system touches.
type Auth0AppMetadata struct {
	StripeCustomerID string `json:"stripe_customer_id,omitempty"`
}

// Auth0User represents a principal as returned by the Auth0 Management API
type Auth0User struct {
	UserID      string           `json:"user_id"`
	Email       string           `json:"email"`
	GivenName   string           `json:"given_name,omitempty"`
	FamilyName  string           `json:"family_name,omitempty"`
	AppMetadata Auth0AppMetadata `json:"app_metadata,omitempty"`
}

// UserDetails bundles everything the management service resolves for an email:
// the principal (nil when Auth0 has no matching user), the raw role claims and
// the Directus role the highest-priority claim maps to.
type UserDetails struct {
	User           *Auth0User  `json:"user"`
	Roles          []Auth0Role `json:"roles"`
	DirectusRoleID string      `json:"directusRoleId"`
}
