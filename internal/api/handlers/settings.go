package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ARedaUni/teloshousemeet/internal/api"
	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
)

// settingsStore persists application settings
type settingsStore interface {
	Get(ctx context.Context, key string) (*repository.Setting, error)
	Set(ctx context.Context, key string, value json.RawMessage) (*repository.Setting, error)
	List(ctx context.Context) ([]repository.Setting, error)
	Delete(ctx context.Context, key string) error
}

// SettingsHandler handles settings-related HTTP requests
type SettingsHandler struct {
	settings settingsStore
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings settingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// SetSettingRequest is the request body for updating a setting
type SetSettingRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// ListSettings returns all settings
func (h *SettingsHandler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to list settings", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, settings, nil)
}

// GetSetting returns a single setting by key
func (h *SettingsHandler) GetSetting(c *gin.Context) {
	setting, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Setting")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to get setting", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, setting, nil)
}

// SetSetting creates or replaces a setting value
func (h *SettingsHandler) SetSetting(c *gin.Context) {
	var req SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		api.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Value) == 0 {
		api.SendValidationError(c, "Invalid request body", "value is required")
		return
	}

	setting, err := h.settings.Set(c.Request.Context(), c.Param("key"), req.Value)
	if err != nil {
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to save setting", err.Error())
		return
	}

	api.SendSuccess(c, http.StatusOK, setting, nil)
}

// DeleteSetting removes a setting
func (h *SettingsHandler) DeleteSetting(c *gin.Context) {
	if err := h.settings.Delete(c.Request.Context(), c.Param("key")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			api.SendNotFound(c, "Setting")
			return
		}
		api.SendError(c, http.StatusInternalServerError, api.ErrCodeInternal, "Failed to delete setting", err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}
