package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"encantia/internal/models"
)

type Repository interface {
	Reader
	Save(ctx context.Context, row *models.Settings) error
}

// ErrNotifyFailed is returned by Update when the row was saved but the change
// could not be broadcast to other instances.
var ErrNotifyFailed = errors.New("settings saved but change notification failed")

// Applier takes a saved row into this instance's live state. *Watcher is one.
type Applier interface {
	Apply(active bool, message string) bool
}

// Service is the admin side: it writes the row and announces the change.
type Service struct {
	repo  Repository
	pub   Publisher
	local Applier
}

func NewService(repo Repository, pub Publisher, local Applier) *Service {
	return &Service{repo: repo, pub: pub, local: local}
}

func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return row, nil
}

// Update stores the new values, applies them to the local watcher and
// publishes a change event. When the publish fails the saved row is still
// returned, together with ErrNotifyFailed: other instances keep their old
// state until their subscription is re-established and they re-read the row.
func (s *Service) Update(ctx context.Context, maintenance bool, message string) (*models.Settings, error) {
	row := &models.Settings{ID: models.SettingsRowID, Maintenance: maintenance, Message: message}
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	if s.local != nil {
		s.local.Apply(row.Maintenance, row.Message)
	}

	if s.pub != nil {
		if err := s.pub.Publish(ctx, NewUpdateEvent(*row)); err != nil {
			slog.ErrorContext(ctx, "Settings saved but change notification failed", "error", err)
			return row, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
		}
	}
	return row, nil
}
