package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/models"
	"encantia/internal/presence"
)

type PresenceHandler struct {
	tracker *presence.Tracker
}

func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Online godoc
// @Summary Who is online
// @Description Users whose last heartbeat is younger than the online threshold, from the last successful poll
// @Tags presence
// @Produce json
// @Success 200 {object} models.PresenceResponse
// @Router /presence [get]
func (h *PresenceHandler) Online(c *gin.Context) {
	res := models.PresenceResponse{Online: h.tracker.Online()}
	if last := h.tracker.LastPoll(); !last.IsZero() {
		res.LastPoll = last.UnixMilli()
	}
	c.JSON(http.StatusOK, res)
}

// UserStatus godoc
// @Summary Is one user online
// @Tags presence
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.UserPresenceResponse
// @Router /presence/{id} [get]
func (h *PresenceHandler) UserStatus(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, models.UserPresenceResponse{UserID: id, Online: h.tracker.IsOnline(id)})
}

// Heartbeat godoc
// @Summary Record a heartbeat
// @Description For clients without a websocket. Store failures are swallowed.
// @Tags presence
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /presence/heartbeat [post]
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	h.tracker.Heartbeat(c.Request.Context(), sess.UserID)
	c.Status(http.StatusNoContent)
}
