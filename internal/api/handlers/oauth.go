package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ARedaUni/teloshousemeet/internal/api"
	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/google"
)

// stateTTL bounds how long an OAuth state value stays valid
const stateTTL = 10 * time.Minute

// OAuthHandler handles OAuth-related HTTP requests
type OAuthHandler struct {
	googleOAuth google.OAuthServiceInterface
	// State store for CSRF protection (in-memory, short-lived)
	stateStore   map[string]time.Time
	stateStoreMu sync.Mutex
	frontendURL  string
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(googleOAuth google.OAuthServiceInterface, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		googleOAuth: googleOAuth,
		stateStore:  make(map[string]time.Time),
		frontendURL: frontendURL,
	}
}

// storeState stores a state value for CSRF protection, pruning expired ones
func (h *OAuthHandler) storeState(state string) {
	h.stateStoreMu.Lock()
	defer h.stateStoreMu.Unlock()

	now := time.Now()
	for s, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, s)
		}
	}

	h.stateStore[state] = now.Add(stateTTL)
}

// validateState validates and consumes a state value
func (h *OAuthHandler) validateState(state string) bool {
	h.stateStoreMu.Lock()
	defer h.stateStoreMu.Unlock()

	expiry, exists := h.stateStore[state]
	if !exists {
		return false
	}

	delete(h.stateStore, state)

	return !time.Now().After(expiry)
}

// GetGoogleAuthURLResponse is the response for getting the auth URL
type GetGoogleAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// GoogleAccountResponse represents a connected Google account
type GoogleAccountResponse struct {
	ID          string   `json:"id"`
	AccountID   string   `json:"account_id"`
	AccountName *string  `json:"account_name,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// GetGoogleAuthURL returns the authorization URL for Google OAuth
func (h *OAuthHandler) GetGoogleAuthURL(c *gin.Context) {
	state, err := google.GenerateState()
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to generate state", err.Error())
		return
	}

	h.storeState(state)

	api.SendSuccess(c, http.StatusOK, GetGoogleAuthURLResponse{
		URL:   h.googleOAuth.GetAuthURL(state),
		State: state,
	}, nil)
}

// GoogleCallback handles the OAuth callback from Google and redirects to the
// frontend settings page with the outcome.
func (h *OAuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errorParam := c.Query("error")

	redirectBase := h.frontendURL + "/settings"

	if errorParam != "" {
		c.Redirect(http.StatusFound, redirectBase+"?auth=error&provider=google&message="+errorParam)
		return
	}

	if !h.validateState(state) {
		c.Redirect(http.StatusFound, redirectBase+"?auth=error&provider=google&message=invalid_state")
		return
	}

	if _, err := h.googleOAuth.ExchangeCode(c.Request.Context(), code); err != nil {
		c.Redirect(http.StatusFound, redirectBase+"?auth=error&provider=google&message=exchange_failed")
		return
	}

	c.Redirect(http.StatusFound, redirectBase+"?auth=success&provider=google")
}

// ListGoogleAccounts returns all connected Google accounts
func (h *OAuthHandler) ListGoogleAccounts(c *gin.Context) {
	accounts, err := h.googleOAuth.ListAccounts(c.Request.Context())
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list accounts", err.Error())
		return
	}

	responses := make([]GoogleAccountResponse, len(accounts))
	for i, acc := range accounts {
		responses[i] = GoogleAccountResponse{
			ID:          acc.ID.String(),
			AccountID:   acc.AccountID,
			AccountName: acc.AccountName,
			Scopes:      acc.Scopes,
			CreatedAt:   acc.CreatedAt.Format(time.RFC3339),
			UpdatedAt:   acc.UpdatedAt.Format(time.RFC3339),
		}
		if acc.ExpiresAt != nil {
			expiresStr := acc.ExpiresAt.Format(time.RFC3339)
			responses[i].ExpiresAt = &expiresStr
		}
	}

	api.SendSuccess(c, http.StatusOK, responses, nil)
}

// RevokeGoogleAccount disconnects a Google account
func (h *OAuthHandler) RevokeGoogleAccount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.SendError(c, http.StatusBadRequest, api.ErrCodeValidation, "Invalid account ID", err.Error())
		return
	}

	if err := h.googleOAuth.RevokeAccount(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Account")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to revoke account", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, gin.H{"status": "revoked"}, nil)
}
