package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/auth"
	"encantia/internal/models"
	"encantia/internal/services"
	"encantia/pkg/response"
)

const linkCompletedText = "Autenticación completada, puedes cerrar esta ventana"

type ConnectionHandler struct {
	connectionService *services.ConnectionService
	spotify           *auth.SpotifyClient
}

func NewConnectionHandler(connectionService *services.ConnectionService, spotify *auth.SpotifyClient) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService, spotify: spotify}
}

// GetConnection godoc
// @Summary A user's linked account
// @Description Private connections are only visible to their owner
// @Tags connections
// @Produce json
// @Param id path string true "User ID"
// @Param provider path string true "Provider, e.g. spotify"
// @Success 200 {object} models.Connection
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id}/connections/{provider} [get]
func (h *ConnectionHandler) GetConnection(c *gin.Context) {
	conn, err := h.connectionService.Get(c.Request.Context(), viewerID(c), c.Param("id"), c.Param("provider"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// SetVisibility godoc
// @Summary Show or hide a linked account on the profile
// @Tags connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param provider path string true "Provider, e.g. spotify"
// @Param request body models.SetConnectionVisibilityRequest true "Visibility"
// @Success 200 {object} models.MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /me/connections/{provider}/visibility [put]
func (h *ConnectionHandler) SetVisibility(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	var req models.SetConnectionVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.connectionService.SetPublic(c.Request.Context(), sess.UserID, c.Param("provider"), req.IsPublic); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "visibility updated"})
}

// SpotifyLogin godoc
// @Summary Start linking Spotify
// @Description Redirects the signed-in user to Spotify. Browsers navigating here may pass the access token as a query parameter.
// @Tags connections
// @Security BearerAuth
// @Param token query string false "Access token when no Authorization header can be sent"
// @Success 302
// @Failure 401 {object} models.ErrorResponse
// @Router /oauth/spotify [get]
func (h *ConnectionHandler) SpotifyLogin(c *gin.Context) {
	sess, ok := caller(c)
	if !ok {
		return
	}
	target, err := h.spotify.AuthorizeURL(sess.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// SpotifyCallback godoc
// @Summary Finish linking Spotify
// @Description Exchanges the authorization code and stores the tokens
// @Tags connections
// @Produce plain
// @Param code query string true "Authorization code"
// @Param state query string true "Signed state issued at login"
// @Success 200 {string} string
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /oauth/callback/spotify [get]
func (h *ConnectionHandler) SpotifyCallback(c *gin.Context) {
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		response.Error(c, http.StatusBadRequest, response.ErrCodeParamInvalid, "code and state are required")
		return
	}
	userID, err := h.spotify.UserFromState(state)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
		return
	}

	ctx := c.Request.Context()
	token, err := h.spotify.Exchange(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "Spotify code exchange failed", "user_id", userID, "error", err)
		response.Error(c, http.StatusBadGateway, response.ErrCodeUpstream, "")
		return
	}
	if _, err := h.connectionService.LinkSpotify(ctx, userID, token); err != nil {
		fail(c, err)
		return
	}

	slog.InfoContext(ctx, "Spotify account linked", "user_id", userID)
	c.String(http.StatusOK, linkCompletedText)
}
