// Package directus is the authenticated HTTP client to the headless CMS.
// It covers the two surfaces this service needs: the system users collection
// (reconciliation) and the published content collections (read-through).
package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/retry"
)

// ErrUserExists is returned when a create hits the CMS uniqueness constraint
// on email. Callers treat it as "already exists, re-fetch".
var ErrUserExists = errors.New("directus user already exists")

// Client handles communication with the Directus REST API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   retry.Policy
	log     zerolog.Logger
}

// NewClient creates a CMS client authenticating with a static token
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		retry:   retry.UpstreamPolicy(),
		log:     log.With().Str("component", "directus").Logger(),
	}
}

// envelope is the {"data": ...} wrapper Directus puts around every response
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// UsersByEmail returns the first user record matching the email, nil if none
func (c *Client) UsersByEmail(ctx context.Context, email string) (*models.DirectusUser, error) {
	q := url.Values{}
	q.Set("filter[email][_eq]", email)
	q.Set("fields", "id,email,role,external_identifier")

	var users []models.DirectusUser
	if err := c.get(ctx, "/users?"+q.Encode(), &users); err != nil {
		return nil, fmt.Errorf("failed to query users by email: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// UserByID returns the user record, nil if the id is unknown
func (c *Client) UserByID(ctx context.Context, id string) (*models.DirectusUser, error) {
	q := url.Values{}
	q.Set("filter[id][_eq]", id)
	q.Set("fields", "id,email,role")

	var users []models.DirectusUser
	if err := c.get(ctx, "/users?"+q.Encode(), &users); err != nil {
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// CreateUser creates a new user record. A uniqueness violation on email is
// reported as ErrUserExists so the caller can re-fetch instead of failing.
func (c *Client) CreateUser(ctx context.Context, user *models.NewDirectusUser) (*models.DirectusUser, error) {
	var created models.DirectusUser
	err := c.do(ctx, http.MethodPost, "/users", user, &created)
	if err != nil {
		if errors.Is(err, errRecordNotUnique) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

// UpdateUserRole updates only the role reference of a user record
func (c *Client) UpdateUserRole(ctx context.Context, id, roleID string) error {
	payload := map[string]string{"role": roleID}
	if err := c.do(ctx, http.MethodPatch, "/users/"+id, payload, nil); err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// Items reads all published entries of a content collection, newest first,
// decoding them into out. Transient failures are retried.
func (c *Client) Items(ctx context.Context, collection string, fields []string, out interface{}) error {
	q := url.Values{}
	q.Set("filter[status][_eq]", "published")
	q.Set("sort", "-date_created")
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}

	path := "/items/" + collection + "?" + q.Encode()
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.get(ctx, path, out)
	})
}

// AssetOptions are the image transformations supported by the CMS
type AssetOptions struct {
	Width   int
	Height  int
	Quality int
	Fit     string
}

// AssetURL builds the URL of a stored file, with optional transformations
func (c *Client) AssetURL(fileID string, opts *AssetOptions) string {
	if fileID == "" {
		return ""
	}
	u := c.baseURL + "/assets/" + fileID
	if opts == nil {
		return u
	}

	q := url.Values{}
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Quality > 0 {
		q.Set("quality", strconv.Itoa(opts.Quality))
	}
	if opts.Fit != "" {
		q.Set("fit", opts.Fit)
	}
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

var errRecordNotUnique = errors.New("record not unique")

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directus request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read directus response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("directus returned status %d with unparseable body", resp.StatusCode)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		for _, e := range env.Errors {
			if e.Extensions.Code == "RECORD_NOT_UNIQUE" {
				return errRecordNotUnique
			}
		}
		msg := ""
		if len(env.Errors) > 0 {
			msg = ": " + env.Errors[0].Message
		}
		return fmt.Errorf("directus returned status %d%s", resp.StatusCode, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode directus data: %w", err)
		}
	}
	return nil
}
