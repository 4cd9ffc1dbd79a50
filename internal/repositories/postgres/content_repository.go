package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"encantia/internal/models"
)

// ContentRepository serves the read-mostly portal tables and the two
// submission forms.
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) ListEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return out, nil
}

func (r *ContentRepository) ListBooks(ctx context.Context) ([]models.Book, error) {
	var out []models.Book
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return out, nil
}

func (r *ContentRepository) ListTeam(ctx context.Context) ([]models.TeamMember, error) {
	var out []models.TeamMember
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list team: %w", err)
	}
	return out, nil
}

func (r *ContentRepository) ListUpdates(ctx context.Context) ([]models.Update, error) {
	var out []models.Update
	if err := r.db.WithContext(ctx).Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list updates: %w", err)
	}
	return out, nil
}

func (r *ContentRepository) ListActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	var out []models.Alert
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return out, nil
}

func (r *ContentRepository) CreateTeamApplication(ctx context.Context, a *models.TeamApplication) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to save team application: %w", err)
	}
	return nil
}

func (r *ContentRepository) CreateMusicRequest(ctx context.Context, m *models.MusicRequest) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save music request: %w", err)
	}
	return nil
}
