package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/models"
	"encantia/internal/services"
)

type ContentHandler struct {
	contentService    *services.ContentService
	submissionService *services.SubmissionService
}

func NewContentHandler(contentService *services.ContentService, submissionService *services.SubmissionService) *ContentHandler {
	return &ContentHandler{contentService: contentService, submissionService: submissionService}
}

// list writes whatever load returns, or maps its error.
func list[T any](c *gin.Context, load func() ([]T, error)) {
	items, err := load()
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// Events godoc
// @Summary Events, newest first
// @Description Future events carry a countdown
// @Tags content
// @Produce json
// @Success 200 {array} models.EventResponse
// @Router /events [get]
func (h *ContentHandler) Events(c *gin.Context) {
	list(c, func() ([]models.EventResponse, error) { return h.contentService.Events(c.Request.Context()) })
}

// Books godoc
// @Summary Library
// @Tags content
// @Produce json
// @Success 200 {array} models.Book
// @Router /books [get]
func (h *ContentHandler) Books(c *gin.Context) {
	list(c, func() ([]models.Book, error) { return h.contentService.Books(c.Request.Context()) })
}

// Team godoc
// @Summary Staff members
// @Tags content
// @Produce json
// @Success 200 {array} models.TeamMember
// @Router /team [get]
func (h *ContentHandler) Team(c *gin.Context) {
	list(c, func() ([]models.TeamMember, error) { return h.contentService.Team(c.Request.Context()) })
}

// Updates godoc
// @Summary Changelog, newest first
// @Tags content
// @Produce json
// @Success 200 {array} models.Update
// @Router /updates [get]
func (h *ContentHandler) Updates(c *gin.Context) {
	list(c, func() ([]models.Update, error) { return h.contentService.Updates(c.Request.Context()) })
}

// Alerts godoc
// @Summary Active alerts, newest first
// @Tags content
// @Produce json
// @Success 200 {array} models.Alert
// @Router /alerts [get]
func (h *ContentHandler) Alerts(c *gin.Context) {
	list(c, func() ([]models.Alert, error) { return h.contentService.ActiveAlerts(c.Request.Context()) })
}

// LatestAlert godoc
// @Summary Newest active alert
// @Tags content
// @Produce json
// @Success 200 {object} models.Alert
// @Success 204 "No active alert"
// @Router /alerts/latest [get]
func (h *ContentHandler) LatestAlert(c *gin.Context) {
	alert, err := h.contentService.LatestAlert(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if alert == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// SubmitMusic godoc
// @Summary Request a song
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.MusicRequestRequest true "Song name and link"
// @Success 201 {object} models.MusicRequest
// @Failure 400 {object} models.ErrorResponse
// @Router /music-requests [post]
func (h *ContentHandler) SubmitMusic(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.MusicRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	m, err := h.submissionService.SubmitMusic(c.Request.Context(), sess.UserID, sess.Email, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ApplyToTeam godoc
// @Summary Apply to join the team
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TeamApplicationRequest true "Application"
// @Success 201 {object} models.TeamApplication
// @Failure 400 {object} models.ErrorResponse
// @Router /team/applications [post]
func (h *ContentHandler) ApplyToTeam(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.TeamApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	a, err := h.submissionService.ApplyToTeam(c.Request.Context(), sess.UserID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}
