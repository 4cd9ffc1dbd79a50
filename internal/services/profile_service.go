package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"encantia/internal/models"
	"encantia/internal/repositories"
	"encantia/internal/storage"
)

const AvatarBucket = "avatars"

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	FindByName(ctx context.Context, name string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, p *models.Profile) error
}

type ProfileService struct {
	repo  ProfileRepository
	blobs storage.BlobStore
	clock clockwork.Clock
}

func NewProfileService(repo ProfileRepository, blobs storage.BlobStore, clock clockwork.Clock) *ProfileService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ProfileService{repo: repo, blobs: blobs, clock: clock}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) List(ctx context.Context) ([]models.Profile, error) {
	return s.repo.List(ctx)
}

// Directory groups profiles by their trimmed role. Profiles without a role
// land in DefaultDirectoryRole. Groups come back sorted by role name.
func (s *ProfileService) Directory(ctx context.Context) ([]models.DirectoryGroup, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByRole(profiles), nil
}

func GroupByRole(profiles []models.Profile) []models.DirectoryGroup {
	byRole := map[string][]models.Profile{}
	for _, p := range profiles {
		role := strings.TrimSpace(p.Role)
		if role == "" {
			role = models.DefaultDirectoryRole
		}
		byRole[role] = append(byRole[role], p)
	}

	groups := make([]models.DirectoryGroup, 0, len(byRole))
	for role, ps := range byRole {
		groups = append(groups, models.DirectoryGroup{Role: role, Profiles: ps})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Role < groups[j].Role })
	return groups
}

// Create makes the profile for a freshly signed-up user. Names are unique
// regardless of case.
func (s *ProfileService) Create(ctx context.Context, userID, email, name, avatarURL string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	_, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		return nil, ErrProfileTaken
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if err := s.ensureNameFree(ctx, name, userID); err != nil {
		return nil, err
	}

	p := &models.Profile{UserID: userID, Email: email, Name: name, AvatarURL: avatarURL}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	slog.InfoContext(ctx, "Profile created", "user_id", userID, "name", name)
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if !strings.EqualFold(name, p.Name) {
			if err := s.ensureNameFree(ctx, name, userID); err != nil {
				return nil, err
			}
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) ensureNameFree(ctx context.Context, name, userID string) error {
	other, err := s.repo.FindByName(ctx, name)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check name: %w", err)
	case other.UserID != userID:
		return ErrNameTaken
	}
	return nil
}

// UploadAvatar stores the image as <unix millis>.<ext> in the public avatars
// bucket and points the profile at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if ext == "" {
		return nil, fmt.Errorf("%w: file has no extension", ErrInvalidInput)
	}
	object := strconv.FormatInt(s.clock.Now().UnixMilli(), 10) + "." + ext

	err = s.blobs.Upload(ctx, AvatarBucket, object, r, size, storage.UploadOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	p.AvatarURL = s.blobs.PublicURL(AvatarBucket, object)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
