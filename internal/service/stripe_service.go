package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/zizcon/zizcon-api/internal/models"
)

// customerService is the concrete implementation of CustomerService on top
// of the Stripe SDK
type customerService struct {
	sc      *client.API
	tracker Tracker
	log     zerolog.Logger
}

// NewCustomerService creates a payment customer service for the given secret key
func NewCustomerService(secretKey string, tracker Tracker, log zerolog.Logger) CustomerService {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return NewCustomerServiceWithClient(sc, tracker, log)
}

// NewCustomerServiceWithClient creates a customer service around an existing
// Stripe client, which lets tests point it at a stub backend
func NewCustomerServiceWithClient(sc *client.API, tracker Tracker, log zerolog.Logger) CustomerService {
	return &customerService{
		sc:      sc,
		tracker: tracker,
		log:     log.With().Str("service", "stripe").Logger(),
	}
}

// FindCustomerByEmail returns the first customer matching the email, nil if
// none. Uniqueness by email is trusted to the processor, not enforced here.
func (s *customerService) FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	s.tracker.Track(ctx, models.APISourceStripe)

	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := s.sc.Customers.List(params)
	if it.Next() {
		return fromStripeCustomer(it.Customer()), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}
	return nil, nil
}

// FindCustomerByID returns the customer, or nil when the processor reports
// the resource missing. Any other error propagates.
func (s *customerService) FindCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	s.tracker.Track(ctx, models.APISourceStripe)

	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := s.sc.Customers.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by id: %w", err)
	}
	return fromStripeCustomer(cust), nil
}

// CreateCustomer creates a customer carrying the identity subject id in its
// metadata bag
func (s *customerService) CreateCustomer(ctx context.Context, email, auth0UserID string) (*models.Customer, error) {
	s.tracker.Track(ctx, models.APISourceStripe)

	params := &stripe.CustomerParams{
		Email:       stripe.String(email),
		Description: stripe.String("Created via Auth0 integration"),
	}
	params.Context = ctx
	params.AddMetadata(models.MetadataKeyAuth0UserID, auth0UserID)

	cust, err := s.sc.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.log.Info().
		Str("customer_id", cust.ID).
		Str("auth0_user_id", auth0UserID).
		Msg("Stripe customer created")
	return fromStripeCustomer(cust), nil
}

// UpdateCustomer applies a partial update
func (s *customerService) UpdateCustomer(ctx context.Context, id string, upd *UpdateCustomerParams) (*models.Customer, error) {
	s.tracker.Track(ctx, models.APISourceStripe)

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if upd.Email != "" {
		params.Email = stripe.String(upd.Email)
	}
	for k, v := range upd.Metadata {
		params.AddMetadata(k, v)
	}

	cust, err := s.sc.Customers.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return fromStripeCustomer(cust), nil
}

// DeleteCustomer deletes a customer; an already-absent record is success
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	s.tracker.Track(ctx, models.APISourceStripe)

	params := &stripe.CustomerParams{}
	params.Context = ctx

	if _, err := s.sc.Customers.Del(id, params); err != nil {
		if isResourceMissing(err) {
			return nil
		}
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return nil
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}

func fromStripeCustomer(c *stripe.Customer) *models.Customer {
	if c == nil {
		return nil
	}
	return &models.Customer{
		ID:       c.ID,
		Email:    c.Email,
		Metadata: c.Metadata,
	}
}
