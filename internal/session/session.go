// Package session is the request-scoped identity: who is calling and, on
// demand, their profile. The auth middleware builds one per request.
package session

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"

	"encantia/internal/models"
)

const contextKey = "session"

type ProfileLoader func(ctx context.Context, userID string) (*models.Profile, error)

type Session struct {
	UserID string
	Email  string
	Role   string
	Token  string

	loader  ProfileLoader
	once    sync.Once
	profile *models.Profile
	err     error
}

func New(userID, email, role, token string, loader ProfileLoader) *Session {
	return &Session{UserID: userID, Email: email, Role: role, Token: token, loader: loader}
}

func (s *Session) IsAdmin() bool { return s.Role == models.RoleAdmin }

// Profile loads the caller's profile once and reuses it for the rest of the request.
func (s *Session) Profile(ctx context.Context) (*models.Profile, error) {
	s.once.Do(func() {
		if s.loader == nil {
			return
		}
		s.profile, s.err = s.loader(ctx, s.UserID)
	})
	return s.profile, s.err
}

func Set(c *gin.Context, s *Session) { c.Set(contextKey, s) }

func From(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok && s != nil
}
