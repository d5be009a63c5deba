package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-courseview/internal/http/response"
	"github.com/yungbote/neurobridge-courseview/internal/platform/logger"
	"github.com/yungbote/neurobridge-courseview/internal/platform/openai"
	"github.com/yungbote/neurobridge-courseview/internal/services"
)

type SettingsHandler struct {
	log      *logger.Logger
	settings services.ProviderSettingsService
}

func NewSettingsHandler(log *logger.Logger, settings services.ProviderSettingsService) *SettingsHandler {
	return &SettingsHandler{
		log:      log.With("handler", "SettingsHandler"),
		settings: settings,
	}
}

// GET /api/settings/provider
func (h *SettingsHandler) GetProvider(c *gin.Context) {
	response.RespondOK(c, gin.H{"provider": h.settings.Status(c.Request.Context())})
}

// PUT /api/settings/provider-key
func (h *SettingsHandler) SetProviderKey(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.settings.SetAPIKey(c.Request.Context(), req.APIKey); err != nil {
		if errors.Is(err, openai.ErrEmptyAPIKey) {
			response.RespondError(c, http.StatusBadRequest, "invalid_api_key", err)
			return
		}
		h.log.Error("SetProviderKey failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "save_api_key_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"provider": h.settings.Status(c.Request.Context())})
}
