package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"encantia/internal/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var row models.Settings
	if err := r.db.WithContext(ctx).First(&row, models.SettingsRowID).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *SettingsRepository) Save(ctx context.Context, row *models.Settings) error {
	row.ID = models.SettingsRowID
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
