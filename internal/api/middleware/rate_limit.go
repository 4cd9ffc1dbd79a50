package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"encantia/internal/services"
	"encantia/internal/session"
	"encantia/pkg/response"
)

type RateLimitMiddleware struct {
	redisService *services.RedisService
}

func NewRateLimitMiddleware(redisService *services.RedisService) *RateLimitMiddleware {
	return &RateLimitMiddleware{redisService: redisService}
}

// RateLimit limits authenticated callers per endpoint. Must run after RequireAuth.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.From(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.AuthTokenMissing, "")
			return
		}
		key := fmt.Sprintf("rate_limit:%s:%s", sess.UserID, c.FullPath())
		rm.check(c, key, requests, window)
	}
}

// WebSocketRateLimit limits how often one user may open a websocket.
func (rm *RateLimitMiddleware) WebSocketRateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:websocket:%s", c.ClientIP())
		rm.check(c, key, requests, window)
	}
}

// RateLimitIP limits public routes by client IP.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath())
		rm.check(c, key, requests, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, requests int, window time.Duration) {
	allowed, err := rm.redisService.CheckRateLimit(c.Request.Context(), key, requests, window)
	if err != nil {
		// Redis being down should not take the API with it.
		slog.WarnContext(c.Request.Context(), "Rate limit check failed, allowing request", "key", key, "error", err)
		c.Next()
		return
	}
	if !allowed {
		response.Error(c, http.StatusTooManyRequests, response.ErrCodeRateLimited,
			fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window))
		return
	}
	c.Next()
}
