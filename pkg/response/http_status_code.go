package response

import (
	"github.com/gin-gonic/gin"

	"encantia/internal/models"
)

const (
	ErrCodeSuccess      = 2000 // Success
	ErrCodeParamInvalid = 4000 // Request body or query invalid

	AuthLoginFailed     = 4010 // Wrong email or password
	AuthTokenMissing    = 4011 // No bearer token
	AuthTokenInvalid    = 4012 // Token expired, revoked or malformed
	AuthResetInvalid    = 4013 // Reset token expired or used
	ErrCodeForbidden    = 4030 // Admin only
	ErrCodeNotFound     = 4040
	ErrCodeEmailTaken   = 4090
	ErrCodeNameTaken    = 4091
	ErrCodeProfileTaken = 4092
	ErrCodeRateLimited  = 4290

	ErrCodeInternal    = 5000
	ErrCodeUpstream    = 5020 // OAuth provider or blob store failed
	ErrCodeMaintenance = 5030
)

// message
var msg = map[int]string{
	ErrCodeSuccess:      "success",
	ErrCodeParamInvalid: "invalid input data",

	// Auth
	AuthLoginFailed:  "invalid email or password",
	AuthTokenMissing: "authorization header is required",
	AuthTokenInvalid: "invalid or expired token",
	AuthResetInvalid: "reset link is invalid or has expired",
	ErrCodeForbidden: "admin privileges required",

	// Portal
	ErrCodeNotFound:     "not found",
	ErrCodeEmailTaken:   "email already registered",
	ErrCodeNameTaken:    "name already taken",
	ErrCodeProfileTaken: "profile already exists",
	ErrCodeRateLimited:  "rate limit exceeded",

	ErrCodeInternal:    "internal server error",
	ErrCodeUpstream:    "upstream service failed",
	ErrCodeMaintenance: "site under maintenance",
}

// Message returns the default text for code, or "" when unknown.
func Message(code int) string {
	return msg[code]
}

// Error aborts the request with an ErrorResponse carrying code and its default text.
func Error(c *gin.Context, status, code int, details string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Code:    code,
		Message: Message(code),
		Details: details,
	})
}
