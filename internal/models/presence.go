package models

/** -------------------- DTOs -------------------- */
type PresenceResponse struct {
	Online   []string `json:"online"`
	LastPoll int64    `json:"last_poll"` // epoch millis, 0 before the first successful poll
}

type UserPresenceResponse struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
