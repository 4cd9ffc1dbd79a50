package settings

import (
	"context"
	"fmt"

	"encantia/internal/models"
)

const (
	Table = "settings"

	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Key is the filter value that addresses the settings singleton.
var Key = RowKey(models.SettingsRowID)

func RowKey(id uint) string { return fmt.Sprintf("%s:id=%d", Table, id) }

// ChangeEvent is one row change as it travels over the notification channel:
//
//	{"table":"settings","type":"UPDATE","key":"settings:id=1","record":{"id":1,"maintenance":true,"message":"down"}}
type ChangeEvent struct {
	Table  string          `json:"table"`
	Type   string          `json:"type"`
	Key    string          `json:"key"`
	Record models.Settings `json:"record"`
}

func NewUpdateEvent(row models.Settings) ChangeEvent {
	return ChangeEvent{Table: Table, Type: EventUpdate, Key: RowKey(row.ID), Record: row}
}

// Subscription is a live change channel. Events is closed when the
// underlying connection drops or Close is called.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

type Subscriber interface {
	// Subscribe opens a channel that delivers only events whose Key matches key.
	Subscribe(ctx context.Context, key string) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}
