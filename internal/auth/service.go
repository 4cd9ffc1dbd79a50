// Package auth signs users in and out: passwords, JWT sessions, password
// resets, OAuth authorize URLs and the Spotify account link.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"encantia/internal/models"
	"encantia/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	MinPasswordLength = 6
	ResetTokenTTL     = time.Hour
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type ResetStore interface {
	SaveReset(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeReset(ctx context.Context, token string) (string, error)
}

type Service struct {
	users     UserStore
	tokens    *TokenManager
	resets    ResetStore
	mailer    Mailer
	oauth     *OAuth
	publicURL string
}

func NewService(users UserStore, tokens *TokenManager, resets ResetStore, mailer Mailer, oauth *OAuth, publicURL string) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		resets:    resets,
		mailer:    mailer,
		oauth:     oauth,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *Service) Tokens() *TokenManager { return s.tokens }

func (s *Service) SignUp(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: email and a password of at least %d characters are required", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID)
	return s.session(user)
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

func (s *Service) session(user *models.User) (*models.LoginResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, User: user.ToResponse()}, nil
}

// SignOut revokes the presented token.
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// SendPasswordReset mails a one-time reset link. Unknown addresses succeed
// silently so the endpoint cannot be used to enumerate accounts.
func (s *Service) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		slog.DebugContext(ctx, "Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	token := uuid.NewString()
	if err := s.resets.SaveReset(ctx, token, user.ID, ResetTokenTTL); err != nil {
		return err
	}

	link := s.resetLink(redirectTo, token)
	return s.mailer.Send(ctx, Message{
		To:      user.Email,
		Subject: "Restablecer contraseña",
		Text:    "Usa este enlace para elegir una nueva contraseña (caduca en una hora): " + link,
	})
}

func (s *Service) resetLink(redirectTo, token string) string {
	base := redirectTo
	if base == "" {
		base = s.publicURL + "/reset-password"
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	userID, err := s.resets.ConsumeReset(ctx, token)
	if err != nil {
		return err
	}
	return s.UpdatePassword(ctx, userID, password)
}

func (s *Service) SignInWithOAuth(provider, redirectURL string) (string, error) {
	return s.oauth.AuthorizeURL(provider, redirectURL, uuid.NewString())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
