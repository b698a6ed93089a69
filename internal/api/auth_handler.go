package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/auth"
	"github.com/zizcon/zizcon-api/internal/models"
	"github.com/zizcon/zizcon-api/internal/service"
)

// AuthHandler handles the session sync and management endpoints
type AuthHandler struct {
	services *service.Services
	sessions *auth.SessionAccessor
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(services *service.Services, sessions *auth.SessionAccessor, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		services: services,
		sessions: sessions,
		log:      log.With().Str("handler", "auth").Logger(),
	}
}

// SyncUser handles GET /api/auth/sync
//
// Reconciles the authenticated identity with the CMS user store and the
// payment processor: ensures the CMS user exists, its role matches the
// identity's claims, and a linked customer record exists.
func (h *AuthHandler) SyncUser(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := h.sessions.FromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authenticated user found"})
		return
	}

	h.services.Tracker.Track(ctx, models.APISourceWeb)

	result, err := h.services.Sync.Sync(ctx, session)
	if err != nil {
		h.log.Error().Err(err).Str("email", session.Email).Msg("Sync failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "An error occurred while syncing user",
			"details": err.Error(),
		})
		return
	}
	if result.UserID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to sync user"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ManagementDetails handles GET /api/auth/mgmt
//
// Returns the current identity as the management API sees it: the principal,
// its role claims and the CMS role the highest-priority claim maps to.
func (h *AuthHandler) ManagementDetails(c *gin.Context) {
	ctx := c.Request.Context()

	session, err := h.sessions.FromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authenticated user found"})
		return
	}

	h.services.Tracker.Track(ctx, models.APISourceWeb)

	details, err := h.services.Management.GetFullUserDetails(ctx, session.Email)
	if err != nil {
		h.log.Error().Err(err).Str("email", session.Email).Msg("Management lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch user details",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":           details.User,
		"roles":          details.Roles,
		"directusRoleId": details.DirectusRoleID,
	})
}
