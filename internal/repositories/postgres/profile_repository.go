package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"encantia/internal/models"
	"encantia/internal/repositories"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindByName matches case-insensitively.
func (r *ProfileRepository) FindByName(ctx context.Context, name string) (*models.Profile, error) {
	var p models.Profile
	key := strings.ToLower(strings.TrimSpace(name))
	if err := r.db.WithContext(ctx).Where("name_key = ?", key).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return out, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	p.NameKey = strings.ToLower(strings.TrimSpace(p.Name))
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isDuplicate(err) {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *models.Profile) error {
	p.NameKey = strings.ToLower(strings.TrimSpace(p.Name))
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isDuplicate(err) {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
