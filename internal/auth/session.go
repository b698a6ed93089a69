// Package auth wraps retrieval of the caller's identity session. The web
// front-end forwards the Auth0 session token either as a bearer token or in
// the zizcon_session cookie; tokens are HS256-signed with the client secret.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie the front-end stores the session token in
const SessionCookieName = "zizcon_session"

// ErrNoSession indicates the request carries no valid authenticated session
var ErrNoSession = errors.New("no authenticated session")

// Session is the authenticated principal as known to the identity provider
type Session struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

type sessionClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

// SessionAccessor verifies session tokens issued for the Auth0 application
type SessionAccessor struct {
	secret   []byte
	issuer   string
	clientID string
}

// NewSessionAccessor creates an accessor validating tokens from the given
// Auth0 tenant. The issuer is derived from the tenant domain.
func NewSessionAccessor(domain, clientID, clientSecret string) *SessionAccessor {
	return &SessionAccessor{
		secret:   []byte(clientSecret),
		issuer:   fmt.Sprintf("https://%s/", domain),
		clientID: clientID,
	}
}

// FromRequest extracts and verifies the session from an incoming request.
// Returns ErrNoSession when no token is present or verification fails.
func (a *SessionAccessor) FromRequest(r *http.Request) (*Session, error) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, ErrNoSession
	}
	return a.Parse(token)
}

// Parse verifies a raw session token and extracts the principal
func (a *SessionAccessor) Parse(tokenString string) (*Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.clientID),
	)
	if err != nil || !token.Valid {
		return nil, ErrNoSession
	}

	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrNoSession
	}

	return &Session{
		Subject:    claims.Subject,
		Email:      claims.Email,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
