// Package presence approximates "who is online" from periodic heartbeats.
//
// Every connected user writes its last-seen time (epoch milliseconds) into a
// shared store on a fixed interval, and every session periodically reads the
// whole set back. A user counts as online while its last heartbeat is younger
// than the online threshold. Store errors never reach callers: loops log them
// and wait for the next tick.
package presence

import (
	"sort"
	"time"
)

const (
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultPollInterval      = 5 * time.Second
	// DefaultOnlineThreshold is twice the heartbeat interval, tolerating one missed beat.
	DefaultOnlineThreshold = 10 * time.Second
)

// Snapshot maps user IDs to their last heartbeat in epoch milliseconds.
// It is also the on-disk shape of the shared presence document.
type Snapshot map[string]int64

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type Config struct {
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	OnlineThreshold   time.Duration
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		PollInterval:      DefaultPollInterval,
		OnlineThreshold:   DefaultOnlineThreshold,
	}
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.OnlineThreshold <= 0 {
		c.OnlineThreshold = 2 * c.HeartbeatInterval
	}
	return c
}

// IsOnline reports whether userID heartbeated less than threshold before now.
func IsOnline(userID string, snapshot Snapshot, now time.Time, threshold time.Duration) bool {
	ts, ok := snapshot[userID]
	if !ok {
		return false
	}
	return now.UnixMilli()-ts < threshold.Milliseconds()
}

// OnlineUsers returns the sorted IDs in snapshot that are online at now.
func OnlineUsers(snapshot Snapshot, now time.Time, threshold time.Duration) []string {
	online := make([]string, 0, len(snapshot))
	for id := range snapshot {
		if IsOnline(id, snapshot, now, threshold) {
			online = append(online, id)
		}
	}
	sort.Strings(online)
	return online
}
