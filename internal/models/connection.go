package models

import (
	"time"
)

const ProviderSpotify = "spotify"

// Connection links a user to a third-party account (Spotify today).
type Connection struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"uniqueIndex:idx_connections_user_provider;type:varchar(36);not null" json:"user_id"`
	Provider     string    `gorm:"uniqueIndex:idx_connections_user_provider;type:varchar(30);not null" json:"provider"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsPublic     bool      `json:"is_public"`
	CurrentTrack string    `gorm:"type:text" json:"current_track,omitempty"` // raw JSON from the provider
	UpdatedAt    time.Time `json:"updated_at"`
}

type SetConnectionVisibilityRequest struct {
	IsPublic bool `json:"is_public"`
}
