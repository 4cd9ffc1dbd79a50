package websocket

import (
	"encoding/json"

	"encantia/internal/settings"
)

// MessageType is the "type" field of every frame pushed to the browser.
type MessageType string

const (
	// Current maintenance flag and message. Sent on connect and on every change.
	MessageTypeSettings MessageType = "settings"
	// The browser should reload the page. Only sent under the reload change policy.
	MessageTypeReload MessageType = "reload"
	// Users online as of the latest poll.
	MessageTypePresence MessageType = "presence"
)

func (mt MessageType) String() string {
	return string(mt)
}

type SettingsMessage struct {
	Type        MessageType `json:"type"`
	Maintenance bool        `json:"maintenance"`
	Message     string      `json:"message"`
	Loading     bool        `json:"loading"`
}

type ReloadMessage struct {
	Type MessageType `json:"type"`
}

type PresenceMessage struct {
	Type     MessageType `json:"type"`
	Online   []string    `json:"online"`
	Self     bool        `json:"self"` // whether the connected user counts as online
	LastPoll int64       `json:"last_poll"`
}

func newSettingsMessage(s settings.State) SettingsMessage {
	return SettingsMessage{
		Type:        MessageTypeSettings,
		Maintenance: s.Maintenance(),
		Message:     s.Message,
		Loading:     s.Loading(),
	}
}

// changeMessage turns a watcher change into the frame for it.
func changeMessage(ch settings.Change) any {
	if ch.Reload {
		return ReloadMessage{Type: MessageTypeReload}
	}
	return newSettingsMessage(ch.State)
}

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
