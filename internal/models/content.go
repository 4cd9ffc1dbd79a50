package models

import (
	"time"
)

const (
	EventStatusConfirmed = "confirmado"
	EventStatusSuspended = "suspendido"
	EventStatusPending   = "pendiente"
	EventStatusFinished  = "finalizado"
)

type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Date        time.Time `gorm:"index" json:"date"`
	Description string    `gorm:"type:text" json:"description"`
	Cover       string    `json:"cover"`
	Info        string    `gorm:"type:text" json:"info"`
	Winner      string    `json:"winner"`
	Status      string    `gorm:"type:varchar(20);default:pendiente" json:"status"`
}

type Book struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Author      string `json:"author"`
	Cover       string `json:"cover"`
	Link        string `json:"link"`
	Description string `gorm:"type:text" json:"description"`
}

type TeamMember struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatar_url"`
	Description string `gorm:"type:text" json:"description"`
}

func (TeamMember) TableName() string { return "team" }

type TeamApplication struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);index" json:"user_id"`
	Name       string    `gorm:"not null" json:"name"`
	Email      string    `gorm:"not null" json:"email"`
	Discord    string    `json:"discord"`
	Motivation string    `gorm:"type:text" json:"motivation"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	AlertInfo    = "info"
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertError   = "error"
)

type Alert struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Message string `gorm:"not null" json:"message"`
	Type    string `gorm:"type:varchar(20);default:info" json:"type"`
	Active  bool   `gorm:"index" json:"active"`
}

type Update struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MusicRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Email     string    `json:"email"`
	MusicName string    `gorm:"not null" json:"music_name"`
	MusicLink string    `gorm:"not null" json:"music_link"`
	CreatedAt time.Time `json:"created_at"`
}

/** -------------------- DTOs -------------------- */
type Countdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

type EventResponse struct {
	Event
	StatusLabel string     `json:"status_label"`
	Countdown   *Countdown `json:"countdown,omitempty"`
}

type TeamApplicationRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Discord    string `json:"discord"`
	Motivation string `json:"motivation"`
}

type MusicRequestRequest struct {
	MusicName string `json:"music_name"`
	MusicLink string `json:"music_link"`
}
