package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Tracker runs heartbeat and snapshot loops against a Store and keeps the
// last snapshot it managed to read.
type Tracker struct {
	store Store
	clock clockwork.Clock
	cfg   Config

	mu       sync.RWMutex
	snapshot Snapshot
	lastPoll time.Time
	onPoll   []func(Snapshot)
}

func NewTracker(store Store, clock clockwork.Clock, cfg Config) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		store:    store,
		clock:    clock,
		cfg:      cfg.withDefaults(),
		snapshot: Snapshot{},
	}
}

// Heartbeat records one heartbeat for userID. It does nothing without an
// identity and swallows store errors.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := t.store.Heartbeat(ctx, userID, t.clock.Now()); err != nil {
		slog.DebugContext(ctx, "Presence: heartbeat failed", "user_id", userID, "error", err)
	}
}

// Poll refreshes the in-memory snapshot. On failure the previous snapshot is kept.
func (t *Tracker) Poll(ctx context.Context) {
	snap, err := t.store.Snapshot(ctx)
	if err != nil {
		slog.DebugContext(ctx, "Presence: poll failed, keeping last snapshot", "error", err)
		return
	}

	t.mu.Lock()
	t.snapshot = snap
	t.lastPoll = t.clock.Now()
	listeners := append([]func(Snapshot){}, t.onPoll...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap.Clone())
	}
}

// RunHeartbeat heartbeats immediately and then on every interval until ctx is cancelled.
func (t *Tracker) RunHeartbeat(ctx context.Context, userID string) {
	t.loop(ctx, t.cfg.HeartbeatInterval, func() { t.Heartbeat(ctx, userID) })
}

// RunPoller polls immediately and then on every interval until ctx is cancelled.
func (t *Tracker) RunPoller(ctx context.Context) {
	t.loop(ctx, t.cfg.PollInterval, func() { t.Poll(ctx) })
}

func (t *Tracker) loop(ctx context.Context, interval time.Duration, tick func()) {
	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			tick()
		}
	}
}

// OnPoll registers fn to receive a copy of every freshly polled snapshot.
// The returned func removes the listener.
func (t *Tracker) OnPoll(fn func(Snapshot)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPoll = append(t.onPoll, fn)
	idx := len(t.onPoll) - 1
	removed := false
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if removed {
			return
		}
		removed = true
		// Swap in a no-op rather than splicing; other removers hold indexes.
		t.onPoll[idx] = func(Snapshot) {}
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot.Clone()
}

func (t *Tracker) LastPoll() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastPoll
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return IsOnline(userID, t.snapshot, t.clock.Now(), t.cfg.OnlineThreshold)
}

func (t *Tracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return OnlineUsers(t.snapshot, t.clock.Now(), t.cfg.OnlineThreshold)
}

// Session is one user's running heartbeat and poll loops.
type Session struct {
	UserID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Start launches the heartbeat loop for userID (skipped when empty) and a
// poll loop, both owned by the returned Session.
func (t *Tracker) Start(ctx context.Context, userID string) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{UserID: userID, cancel: cancel}

	if userID != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t.RunHeartbeat(ctx, userID)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t.RunPoller(ctx)
	}()

	return s
}

// Stop cancels both loops and waits for them to exit. Safe to call twice.
func (s *Session) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}
