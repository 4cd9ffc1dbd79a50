package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"encantia/internal/auth"
	"encantia/internal/services"
	"encantia/internal/session"
	"encantia/internal/settings"
	"encantia/pkg/response"
)

// fail maps a service error onto a status and error code and aborts.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, services.ErrSelfFollow):
		response.Error(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, response.AuthLoginFailed, "")
	case errors.Is(err, auth.ErrInvalidToken):
		response.Error(c, http.StatusBadRequest, response.AuthResetInvalid, "")
	case errors.Is(err, auth.ErrUnknownProvider):
		response.Error(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
	case errors.Is(err, services.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.ErrCodeNotFound, "")
	case errors.Is(err, auth.ErrEmailTaken):
		response.Error(c, http.StatusConflict, response.ErrCodeEmailTaken, "")
	case errors.Is(err, services.ErrNameTaken):
		response.Error(c, http.StatusConflict, response.ErrCodeNameTaken, "")
	case errors.Is(err, services.ErrProfileTaken):
		response.Error(c, http.StatusConflict, response.ErrCodeProfileTaken, "")
	case errors.Is(err, settings.ErrNotifyFailed):
		slog.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusBadGateway, response.ErrCodeUpstream, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "Request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, response.ErrCodeInternal, "")
	}
}

func badRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, response.ErrCodeParamInvalid, err.Error())
}

// caller returns the session set by RequireAuth. Routes using it must be
// behind RequireAuth; a missing session aborts with 401.
func caller(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.From(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.AuthTokenMissing, "")
	}
	return sess, ok
}

// viewerID is the caller's id on routes that also allow anonymous access.
func viewerID(c *gin.Context) string {
	if sess, ok := session.From(c); ok {
		return sess.UserID
	}
	return ""
}
