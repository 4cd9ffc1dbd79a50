package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"encantia/internal/models"
	"encantia/internal/repositories"
)

type ConnectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) Find(ctx context.Context, userID, provider string) (*models.Connection, error) {
	var c models.Connection
	err := r.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Upsert replaces the tokens of an existing (user, provider) row and keeps
// its visibility flag.
func (r *ConnectionRepository) Upsert(ctx context.Context, c *models.Connection) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepository) SetPublic(ctx context.Context, userID, provider string, public bool) error {
	res := r.db.WithContext(ctx).Model(&models.Connection{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Update("is_public", public)
	if res.Error != nil {
		return fmt.Errorf("failed to update connection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
