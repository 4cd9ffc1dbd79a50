package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/models"
	"encantia/internal/settings"
)

type SettingsHandler struct {
	settingsService *settings.Service
	watcher         *settings.Watcher
}

func NewSettingsHandler(settingsService *settings.Service, watcher *settings.Watcher) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, watcher: watcher}
}

// GetSettings godoc
// @Summary Current site mode
// @Description Maintenance flag and message as this instance currently sees them
// @Tags settings
// @Produce json
// @Success 200 {object} models.SettingsResponse
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	state := h.watcher.State()
	c.JSON(http.StatusOK, models.SettingsResponse{
		Maintenance: state.Maintenance(),
		Message:     state.Message,
		Loading:     state.Loading(),
	})
}

// UpdateSettings godoc
// @Summary Toggle maintenance mode
// @Description Stores the settings row and notifies every instance
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateSettingsRequest true "New settings"
// @Success 200 {object} models.Settings
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse "Saved and applied here, but other instances were not notified"
// @Router /admin/settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	row, err := h.settingsService.Update(c.Request.Context(), req.Maintenance, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
