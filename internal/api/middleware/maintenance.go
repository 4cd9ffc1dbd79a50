package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"encantia/internal/session"
	"encantia/internal/settings"
	"encantia/pkg/response"
)

type StateSource interface {
	State() settings.State
}

// Maintenance answers 503 with the maintenance message while the site is in
// maintenance, and 503 with Retry-After while the first settings read is
// still pending. Paths starting with one of exempt and admin sessions pass.
func Maintenance(src StateSource, exempt ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range exempt {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		if sess, ok := session.From(c); ok && sess.IsAdmin() {
			c.Next()
			return
		}

		state := src.State()
		switch {
		case state.Loading():
			c.Header("Retry-After", "1")
			response.Error(c, http.StatusServiceUnavailable, response.ErrCodeMaintenance, "loading")
		case state.Maintenance():
			response.Error(c, http.StatusServiceUnavailable, response.ErrCodeMaintenance, state.Message)
		default:
			c.Next()
		}
	}
}
