package services

import (
	"context"

	"encantia/internal/models"
)

type FollowRepository interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	Create(ctx context.Context, followerID, followingID string) error
	Delete(ctx context.Context, followerID, followingID string) error
	Counts(ctx context.Context, userID string) (models.FollowCounts, error)
}

type FollowService struct {
	repo FollowRepository
}

func NewFollowService(repo FollowRepository) *FollowService {
	return &FollowService{repo: repo}
}

// Toggle follows when not following yet and unfollows otherwise. It returns
// the new relationship and the target's counts.
func (s *FollowService) Toggle(ctx context.Context, followerID, followingID string) (*models.FollowStatusResponse, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}

	following, err := s.repo.Exists(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if following {
		err = s.repo.Delete(ctx, followerID, followingID)
	} else {
		err = s.repo.Create(ctx, followerID, followingID)
	}
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.Counts(ctx, followingID)
	if err != nil {
		return nil, err
	}
	return &models.FollowStatusResponse{Following: !following, Counts: counts}, nil
}

func (s *FollowService) Status(ctx context.Context, followerID, followingID string) (*models.FollowStatusResponse, error) {
	counts, err := s.repo.Counts(ctx, followingID)
	if err != nil {
		return nil, err
	}
	res := &models.FollowStatusResponse{Counts: counts}
	if followerID != "" && followerID != followingID {
		if res.Following, err = s.repo.Exists(ctx, followerID, followingID); err != nil {
			return nil, err
		}
	}
	return res, nil
}
