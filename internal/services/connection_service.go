package services

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"encantia/internal/auth"
	"encantia/internal/models"
	"encantia/internal/repositories"
)

type ConnectionRepository interface {
	Find(ctx context.Context, userID, provider string) (*models.Connection, error)
	Upsert(ctx context.Context, c *models.Connection) error
	SetPublic(ctx context.Context, userID, provider string, public bool) error
}

type ConnectionService struct {
	repo  ConnectionRepository
	clock clockwork.Clock
}

func NewConnectionService(repo ConnectionRepository, clock clockwork.Clock) *ConnectionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionService{repo: repo, clock: clock}
}

// Get returns the connection. Callers other than the owner only see public ones.
func (s *ConnectionService) Get(ctx context.Context, viewerID, userID, provider string) (*models.Connection, error) {
	c, err := s.repo.Find(ctx, userID, provider)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if viewerID != userID && !c.IsPublic {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *ConnectionService) SetPublic(ctx context.Context, userID, provider string, public bool) error {
	err := s.repo.SetPublic(ctx, userID, provider, public)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *ConnectionService) LinkSpotify(ctx context.Context, userID string, tok *auth.SpotifyToken) (*models.Connection, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	c := &models.Connection{
		UserID:       userID,
		Provider:     models.ProviderSpotify,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    s.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
