package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"encantia/internal/auth"
	"encantia/internal/session"
	"encantia/pkg/response"
)

type AuthMiddleware struct {
	tokens *auth.TokenManager
	loader session.ProfileLoader
}

func NewAuthMiddleware(tokens *auth.TokenManager, loader session.ProfileLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, loader: loader}
}

// RequireAuth rejects the request unless it carries a valid bearer token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return am.requireAuth(bearerToken)
}

// RequireAuthOrQuery is RequireAuth for routes opened by browser navigation:
// without an Authorization header the token is read from the param query.
func (am *AuthMiddleware) RequireAuthOrQuery(param string) gin.HandlerFunc {
	return am.requireAuth(func(c *gin.Context) string {
		if raw := bearerToken(c); raw != "" {
			return raw
		}
		return c.Query(param)
	})
}

func (am *AuthMiddleware) requireAuth(token func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := session.From(c); ok {
			c.Next()
			return
		}
		raw := token(c)
		if raw == "" {
			response.Error(c, http.StatusUnauthorized, response.AuthTokenMissing, "")
			return
		}
		if !am.attach(c, raw) {
			response.Error(c, http.StatusUnauthorized, response.AuthTokenInvalid, "")
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches a session when a valid token is present and lets
// anonymous requests through untouched.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			am.attach(c, raw)
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.From(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.AuthTokenMissing, "")
			return
		}
		if !sess.IsAdmin() {
			response.Error(c, http.StatusForbidden, response.ErrCodeForbidden, "")
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) attach(c *gin.Context, raw string) bool {
	claims, err := am.tokens.Parse(c.Request.Context(), raw)
	if err != nil {
		return false
	}
	session.Set(c, session.New(claims.Subject, claims.Email, claims.Role, raw, am.loader))
	c.Set("user_id", claims.Subject)
	return true
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
