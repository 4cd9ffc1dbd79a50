package services

import (
	"context"
	"fmt"
	"strings"

	"encantia/internal/models"
)

type SubmissionRepository interface {
	CreateTeamApplication(ctx context.Context, a *models.TeamApplication) error
	CreateMusicRequest(ctx context.Context, m *models.MusicRequest) error
}

// SubmissionService handles the public forms: music requests and team applications.
type SubmissionService struct {
	repo SubmissionRepository
}

func NewSubmissionService(repo SubmissionRepository) *SubmissionService {
	return &SubmissionService{repo: repo}
}

func (s *SubmissionService) SubmitMusic(ctx context.Context, userID, email string, req models.MusicRequestRequest) (*models.MusicRequest, error) {
	name := strings.TrimSpace(req.MusicName)
	link := strings.TrimSpace(req.MusicLink)
	if name == "" || link == "" {
		return nil, fmt.Errorf("%w: music name and link are required", ErrInvalidInput)
	}

	m := &models.MusicRequest{UserID: userID, Email: email, MusicName: name, MusicLink: link}
	if err := s.repo.CreateMusicRequest(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SubmissionService) ApplyToTeam(ctx context.Context, userID string, req models.TeamApplicationRequest) (*models.TeamApplication, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}

	a := &models.TeamApplication{
		UserID:     userID,
		Name:       name,
		Email:      email,
		Discord:    strings.TrimSpace(req.Discord),
		Motivation: strings.TrimSpace(req.Motivation),
	}
	if err := s.repo.CreateTeamApplication(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
