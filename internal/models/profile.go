package models

import (
	"time"
)

// DefaultDirectoryRole groups profiles that have no role set.
const DefaultDirectoryRole = "Usuarios"

// Profile is the public face of a user
type Profile struct {
	UserID      string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	Name        string    `gorm:"not null;type:varchar(100)" json:"name"`
	NameKey     string    `gorm:"uniqueIndex;not null;type:varchar(100)" json:"-"` // lower(name), for case-insensitive uniqueness
	Email       string    `gorm:"type:varchar(255)" json:"email"`
	AvatarURL   string    `json:"avatar_url"`
	Role        string    `gorm:"type:varchar(100)" json:"role"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Follow struct {
	FollowerID  string    `gorm:"primaryKey;type:varchar(36)" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;type:varchar(36);index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

/** -------------------- DTOs -------------------- */
type CreateProfileRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	AvatarURL string `json:"avatar_url"`
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

type DirectoryGroup struct {
	Role     string    `json:"role"`
	Profiles []Profile `json:"profiles"`
}

type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

type FollowStatusResponse struct {
	Following bool         `json:"following"`
	Counts    FollowCounts `json:"counts"`
}
