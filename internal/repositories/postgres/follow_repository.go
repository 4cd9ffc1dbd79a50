package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"encantia/internal/models"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return count > 0, nil
}

func (r *FollowRepository) Create(ctx context.Context, followerID, followingID string) error {
	f := models.Follow{FollowerID: followerID, FollowingID: followingID}
	if err := r.db.WithContext(ctx).Create(&f).Error; err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	return nil
}

func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID string) error {
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

func (r *FollowRepository) Counts(ctx context.Context, userID string) (models.FollowCounts, error) {
	var c models.FollowCounts
	db := r.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("following_id = ?", userID).Count(&c.Followers).Error; err != nil {
		return c, fmt.Errorf("failed to count followers: %w", err)
	}
	db = r.db.WithContext(ctx).Model(&models.Follow{})
	if err := db.Where("follower_id = ?", userID).Count(&c.Following).Error; err != nil {
		return c, fmt.Errorf("failed to count following: %w", err)
	}
	return c, nil
}
