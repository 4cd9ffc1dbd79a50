package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"encantia/internal/models"
)

type ContentRepository interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	ListTeam(ctx context.Context) ([]models.TeamMember, error)
	ListUpdates(ctx context.Context) ([]models.Update, error)
	ListActiveAlerts(ctx context.Context) ([]models.Alert, error)
}

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

const contentCacheTTL = time.Minute

var eventStatusLabels = map[string]string{
	models.EventStatusConfirmed: "Confirmado",
	models.EventStatusSuspended: "Suspendido",
	models.EventStatusPending:   "Pendiente de validación",
	models.EventStatusFinished:  "Finalizado",
}

// ContentService serves the mostly static portal pages. Books and team
// listings are cached briefly when a cache is configured.
type ContentService struct {
	repo  ContentRepository
	cache Cache
	clock clockwork.Clock
}

func NewContentService(repo ContentRepository, cache Cache, clock clockwork.Clock) *ContentService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ContentService{repo: repo, cache: cache, clock: clock}
}

// Events returns events newest first, each with its status label and, when
// it is still ahead, the time left.
func (s *ContentService) Events(ctx context.Context) ([]models.EventResponse, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]models.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, models.EventResponse{
			Event:       e,
			StatusLabel: eventStatusLabels[e.Status],
			Countdown:   CountdownUntil(now, e.Date),
		})
	}
	return out, nil
}

// CountdownUntil splits the time from now to at into whole units. It returns
// nil once at has passed.
func CountdownUntil(now, at time.Time) *models.Countdown {
	diff := at.Sub(now)
	if diff <= 0 {
		return nil
	}
	secs := int64(diff / time.Second)
	return &models.Countdown{
		Days:    secs / 86400,
		Hours:   secs / 3600 % 24,
		Minutes: secs / 60 % 60,
		Seconds: secs % 60,
	}
}

func (s *ContentService) Books(ctx context.Context) ([]models.Book, error) {
	return cached(ctx, s.cache, "content:books", s.repo.ListBooks)
}

func (s *ContentService) Team(ctx context.Context) ([]models.TeamMember, error) {
	return cached(ctx, s.cache, "content:team", s.repo.ListTeam)
}

func (s *ContentService) Updates(ctx context.Context) ([]models.Update, error) {
	return s.repo.ListUpdates(ctx)
}

func (s *ContentService) ActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	return s.repo.ListActiveAlerts(ctx)
}

// LatestAlert is the newest active alert, or nil when there is none.
func (s *ContentService) LatestAlert(ctx context.Context) (*models.Alert, error) {
	alerts, err := s.repo.ListActiveAlerts(ctx)
	if err != nil || len(alerts) == 0 {
		return nil, err
	}
	return &alerts[0], nil
}

func cached[T any](ctx context.Context, cache Cache, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if cache != nil {
		var hit []T
		if err := cache.Get(ctx, key, &hit); err == nil {
			return hit, nil
		}
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Set(ctx, key, items, contentCacheTTL); err != nil {
			slog.WarnContext(ctx, "Failed to cache content", "key", key, "error", err)
		}
	}
	return items, nil
}
