package models

// Customer is the slice of a payment-processor customer record this system
// cares about. The metadata bag carries the identity subject id under
// "auth0_user_id", which is the join key back to the principal.
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetadataKeyAuth0UserID is the customer metadata key holding the subject id
const MetadataKeyAuth0UserID = "auth0_user_id"
