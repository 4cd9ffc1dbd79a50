package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidState = errors.New("invalid or expired oauth state")

const DefaultLinkStateTTL = 10 * time.Minute

// LinkStates signs the OAuth state of an account-linking flow so the callback
// knows which user started it. The key is derived from the session secret, so
// a state can never pass as an access token.
type LinkStates struct {
	key      []byte
	audience string
	ttl      time.Duration
	clock    clockwork.Clock
}

func NewLinkStates(secret, provider string, clock clockwork.Clock) *LinkStates {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	key := make([]byte, sha256.Size)
	// Reading 32 bytes from HKDF-SHA256 cannot fail.
	_, _ = io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("oauth-link-state")), key)
	return &LinkStates{
		key:      key,
		audience: "link:" + provider,
		ttl:      DefaultLinkStateTTL,
		clock:    clock,
	}
}

func (s *LinkStates) Sign(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{s.audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nil
}

// Verify returns the user id a state was signed for.
func (s *LinkStates) Verify(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
