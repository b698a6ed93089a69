package models

// APISource identifies which external API a tracked call went to
type APISource string

const (
	APISourceWeb      APISource = "WEB_API"
	APISourceAuth0    APISource = "AUTH0_MGMT_API"
	APISourceDirectus APISource = "DIRECTUS_API"
	APISourceStripe   APISource = "STRIPE_API"
)

// APICallRecord is one row of the append-only call ledger. Timestamp is unix
// milliseconds; insert order is the only ordering guarantee.
type APICallRecord struct {
	ID        string    `json:"id" db:"id"`
	Timestamp int64     `json:"timestamp" db:"timestamp"`
	Source    APISource `json:"api_source" db:"api_source"`
}
