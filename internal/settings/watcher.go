// Package settings keeps the process in step with the settings singleton:
// an initial read, then a change subscription that flips maintenance mode.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"encantia/internal/models"
	"encantia/internal/platform/retry"
)

type Mode int

const (
	ModeLoading Mode = iota
	ModeNormal
	ModeMaintenance
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeMaintenance:
		return "maintenance"
	default:
		return "loading"
	}
}

type State struct {
	Mode    Mode
	Message string
}

func (s State) Loading() bool     { return s.Mode == ModeLoading }
func (s State) Maintenance() bool { return s.Mode == ModeMaintenance }

// Policy decides what listeners are told to do with a pushed change.
type Policy string

const (
	// PolicyInPlace hands listeners the new state and nothing else.
	PolicyInPlace Policy = "in-place"
	// PolicyReload also flags the change so clients throw away their state and reload.
	PolicyReload Policy = "reload"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyInPlace, "":
		return PolicyInPlace, nil
	case PolicyReload:
		return PolicyReload, nil
	}
	return "", fmt.Errorf("unknown change policy %q", s)
}

type Change struct {
	State  State
	Reload bool
}

type Reader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

const (
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

type Watcher struct {
	repo   Reader
	sub    Subscriber
	clock  clockwork.Clock
	policy Policy

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// dispatch orders state changes with their listener calls.
	dispatch  sync.Mutex
	mu        sync.RWMutex
	state     State
	listeners map[int]func(Change)
	nextID    int

	subMu  sync.Mutex
	active Subscription
	cancel context.CancelFunc
	closed bool
}

func NewWatcher(repo Reader, sub Subscriber, clock clockwork.Clock, policy Policy) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if policy == "" {
		policy = PolicyInPlace
	}
	return &Watcher{
		repo:           repo,
		sub:            sub,
		clock:          clock,
		policy:         policy,
		InitialBackoff: DefaultReconnectBackoff,
		MaxBackoff:     DefaultMaxReconnectBackoff,
		listeners:      make(map[int]func(Change)),
	}
}

func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Watcher) Policy() Policy { return w.policy }

// FetchInitial reads the row once and settles the state. Any failure fails
// open to normal mode with an empty message.
func (w *Watcher) FetchInitial(ctx context.Context) State {
	active, message := false, ""
	row, err := w.repo.Get(ctx)
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "Settings: initial fetch failed, assuming normal mode", "error", err)
	case row == nil:
		slog.WarnContext(ctx, "Settings: row missing, assuming normal mode")
	default:
		active, message = row.Maintenance, row.Message
	}

	w.apply(active, message, false)
	return w.State()
}

// Apply reconciles the local state with (active, message). Applying the
// current values again is a no-op. It reports whether anything changed.
func (w *Watcher) Apply(active bool, message string) bool {
	return w.apply(active, message, w.policy == PolicyReload)
}

func (w *Watcher) apply(active bool, message string, reload bool) bool {
	next := State{Mode: ModeNormal}
	if active {
		next = State{Mode: ModeMaintenance, Message: message}
	}

	w.dispatch.Lock()
	defer w.dispatch.Unlock()

	w.mu.Lock()
	if w.state == next {
		w.mu.Unlock()
		return false
	}
	prev := w.state
	w.state = next
	listeners := make([]func(Change), 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	w.mu.Unlock()

	slog.Info("Settings: mode changed", "from", prev.Mode.String(), "to", next.Mode.String(), "message", next.Message)

	// A reload out of Loading would loop clients that just finished loading.
	change := Change{State: next, Reload: reload && !prev.Loading()}
	for _, fn := range listeners {
		fn(change)
	}
	return true
}

// OnChange registers fn for every state change. Call the returned func to
// unregister.
func (w *Watcher) OnChange(fn func(Change)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Watch calls fn with the current state and then with every later change,
// in order. Listeners must not call back into Apply. Call the returned func
// to unregister.
func (w *Watcher) Watch(fn func(Change)) func() {
	w.dispatch.Lock()
	defer w.dispatch.Unlock()
	fn(Change{State: w.State()})
	return w.OnChange(fn)
}

// Run fetches the row, then subscribes and applies change events until ctx
// is cancelled or Close is called. A dropped or failed subscription is
// retried with exponential backoff, and every re-subscribe re-reads the row
// so nothing published while disconnected is lost.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.subMu.Lock()
	if w.closed {
		w.subMu.Unlock()
		return nil
	}
	w.cancel = cancel
	w.subMu.Unlock()

	w.FetchInitial(ctx)

	backoff := retry.NewBackoff(w.InitialBackoff, w.MaxBackoff)
	resync := false
	for {
		sub, err := w.sub.Subscribe(ctx, Key)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait := backoff.Next()
			slog.WarnContext(ctx, "Settings: subscribe failed, retrying", "error", err, "backoff", wait)
			if retry.Sleep(ctx, w.clock, wait) != nil {
				return nil
			}
			resync = true
			continue
		}
		if !w.track(sub) {
			_ = sub.Close()
			return nil
		}
		backoff.Reset()

		if resync {
			w.resync(ctx)
		}

		w.consume(ctx, sub)
		w.untrack(sub)
		_ = sub.Close()

		if ctx.Err() != nil {
			return nil
		}
		wait := backoff.Next()
		slog.WarnContext(ctx, "Settings: change subscription dropped, reconnecting", "backoff", wait)
		if retry.Sleep(ctx, w.clock, wait) != nil {
			return nil
		}
		resync = true
	}
}

func (w *Watcher) consume(ctx context.Context, sub Subscription) {
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev ChangeEvent) {
	if ev.Key != Key {
		return
	}
	switch ev.Type {
	case EventInsert, EventUpdate:
		w.Apply(ev.Record.Maintenance, ev.Record.Message)
	default:
		slog.Debug("Settings: ignoring change event", "type", ev.Type)
	}
}

func (w *Watcher) resync(ctx context.Context) {
	row, err := w.repo.Get(ctx)
	if err != nil || row == nil {
		slog.WarnContext(ctx, "Settings: resync after reconnect failed, keeping current state", "error", err)
		return
	}
	w.Apply(row.Maintenance, row.Message)
}

func (w *Watcher) track(sub Subscription) bool {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	if w.closed {
		return false
	}
	w.active = sub
	return true
}

func (w *Watcher) untrack(sub Subscription) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	if w.active == sub {
		w.active = nil
	}
}

// Close releases the active subscription and stops Run. Safe to call more than once.
func (w *Watcher) Close() error {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	if w.active != nil {
		err := w.active.Close()
		w.active = nil
		return err
	}
	return nil
}
