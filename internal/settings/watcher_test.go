package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encantia/internal/models"
	"encantia/internal/repositories"
)

type fakeRepo struct {
	mu    sync.Mutex
	row   *models.Settings
	err   error
	reads int
	log   *callLog
}

func (r *fakeRepo) Get(context.Context) (*models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	r.log.add("fetch")
	if r.err != nil {
		return nil, r.err
	}
	if r.row == nil {
		return nil, nil
	}
	row := *r.row
	return &row, nil
}

func (r *fakeRepo) Save(_ context.Context, row *models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *row
	r.row = &cp
	return nil
}

func (r *fakeRepo) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *fakeRepo) set(maintenance bool, message string) {
	r.mu.Lock()
	r.row = &models.Settings{ID: 1, Maintenance: maintenance, Message: message}
	r.mu.Unlock()
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeSub struct {
	events   chan ChangeEvent
	dropOnce sync.Once
	mu       sync.Mutex
	closed   bool
}

func (s *fakeSub) Events() <-chan ChangeEvent { return s.events }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSub) drop() { s.dropOnce.Do(func() { close(s.events) }) }

type fakeSubscriber struct {
	mu    sync.Mutex
	subs  []*fakeSub
	fail  int
	calls int
	keys  []string
	log   *callLog
}

func (f *fakeSubscriber) Subscribe(_ context.Context, key string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.keys = append(f.keys, key)
	f.log.add("subscribe")
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("connection refused")
	}
	s := &fakeSub{events: make(chan ChangeEvent, 8)}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeSubscriber) subscribedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakeSubscriber) latest() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func update(maintenance bool, message string) ChangeEvent {
	return NewUpdateEvent(models.Settings{ID: 1, Maintenance: maintenance, Message: message})
}

func runWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		done <- w.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Error("watcher did not stop")
		}
	})
	return cancel, done
}

func TestWatcher_StartsLoading(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
	assert.True(t, w.State().Loading())
}

func TestWatcher_FetchInitialFailsOpen(t *testing.T) {
	tests := []struct {
		name string
		repo *fakeRepo
	}{
		{"fetch error", &fakeRepo{err: errors.New("timeout")}},
		{"missing row", &fakeRepo{}},
		{"not found", &fakeRepo{err: repositories.ErrNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWatcher(tt.repo, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
			state := w.FetchInitial(context.Background())
			assert.Equal(t, State{Mode: ModeNormal}, state)
			assert.False(t, w.State().Loading())
		})
	}
}

func TestWatcher_FetchInitialMaintenance(t *testing.T) {
	repo := &fakeRepo{row: &models.Settings{ID: 1, Maintenance: true, Message: "back soon"}}
	w := NewWatcher(repo, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)

	state := w.FetchInitial(context.Background())
	assert.Equal(t, State{Mode: ModeMaintenance, Message: "back soon"}, state)
}

func TestWatcher_ApplyIsIdempotent(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
	w.FetchInitial(context.Background())

	var changes []Change
	w.OnChange(func(c Change) { changes = append(changes, c) })

	assert.True(t, w.Apply(true, "m"))
	assert.False(t, w.Apply(true, "m"))
	assert.Equal(t, State{Mode: ModeMaintenance, Message: "m"}, w.State())
	assert.Len(t, changes, 1)

	// The message only matters while in maintenance.
	assert.True(t, w.Apply(false, "m"))
	assert.False(t, w.Apply(false, "other"))
	assert.Equal(t, State{Mode: ModeNormal}, w.State())
}

func TestWatcher_OnChangeRemove(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
	calls := 0
	remove := w.OnChange(func(Change) { calls++ })

	w.Apply(true, "a")
	remove()
	w.Apply(false, "")
	assert.Equal(t, 1, calls)
}

func TestWatcher_WatchStartsWithCurrentState(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
	w.Apply(true, "down")

	var changes []Change
	remove := w.Watch(func(c Change) { changes = append(changes, c) })
	w.Apply(false, "")
	remove()
	w.Apply(true, "again")

	require.Len(t, changes, 2)
	assert.Equal(t, State{Mode: ModeMaintenance, Message: "down"}, changes[0].State)
	assert.False(t, changes[0].Reload)
	assert.Equal(t, State{Mode: ModeNormal}, changes[1].State)
}

// Concurrent applies while listeners register: every listener must end on
// the watcher's final state.
func TestWatcher_WatchNeverEndsStale(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)

	const listeners = 50
	var mu sync.Mutex
	last := make([]State, listeners)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			w.Apply(i%2 == 0, "down")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < listeners; i++ {
			i := i
			w.Watch(func(c Change) {
				mu.Lock()
				last[i] = c.State
				mu.Unlock()
			})
		}
	}()
	wg.Wait()

	final := w.State()
	mu.Lock()
	defer mu.Unlock()
	for i, got := range last {
		assert.Equal(t, final, got, "listener %d", i)
	}
}

func TestWatcher_ReloadPolicyFlagsPushedChanges(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyReload)

	var changes []Change
	w.OnChange(func(c Change) { changes = append(changes, c) })

	w.FetchInitial(context.Background())
	w.Apply(true, "down")

	require.Len(t, changes, 2)
	assert.False(t, changes[0].Reload, "settling out of loading never reloads")
	assert.True(t, changes[1].Reload)
	assert.Equal(t, State{Mode: ModeMaintenance, Message: "down"}, changes[1].State)
}

func TestWatcher_SubscribesAfterInitialFetch(t *testing.T) {
	log := &callLog{}
	repo := &fakeRepo{row: &models.Settings{ID: 1}, log: log}
	subs := &fakeSubscriber{log: log}
	w := NewWatcher(repo, subs, clockwork.NewFakeClock(), PolicyInPlace)

	runWatcher(t, w)

	require.Eventually(t, func() bool { return subs.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"fetch", "subscribe"}, log.get())
	assert.Equal(t, []string{"settings:id=1"}, subs.subscribedKeys())
}

// Row starts with maintenance off: the client settles into the normal view
// after the single initial read.
func TestWatcher_NormalViewAfterLoad(t *testing.T) {
	repo := &fakeRepo{row: &models.Settings{ID: 1, Maintenance: false}}
	w := NewWatcher(repo, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)

	runWatcher(t, w)

	require.Eventually(t, func() bool { return !w.State().Loading() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, State{Mode: ModeNormal}, w.State())
	assert.Equal(t, 1, repo.readCount())
}

// Row flips to maintenance while connected: the change event alone moves the
// watcher into maintenance with the exact message.
func TestWatcher_PushedChangeEntersMaintenance(t *testing.T) {
	repo := &fakeRepo{row: &models.Settings{ID: 1}}
	subs := &fakeSubscriber{}
	w := NewWatcher(repo, subs, clockwork.NewFakeClock(), PolicyInPlace)

	changes := make(chan Change, 4)
	w.OnChange(func(c Change) { changes <- c })
	runWatcher(t, w)
	require.Eventually(t, func() bool { return subs.count() == 1 }, time.Second, 5*time.Millisecond)
	<-changes // loading -> normal

	subs.latest().events <- ChangeEvent{Table: Table, Type: EventUpdate, Key: "settings:id=2", Record: models.Settings{ID: 2, Maintenance: true}}
	subs.latest().events <- update(true, "down")

	select {
	case c := <-changes:
		assert.Equal(t, State{Mode: ModeMaintenance, Message: "down"}, c.State)
		assert.False(t, c.Reload)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
	assert.Equal(t, 1, repo.readCount(), "no re-read needed")
}

func TestWatcher_DeleteEventsIgnored(t *testing.T) {
	w := NewWatcher(&fakeRepo{}, &fakeSubscriber{}, clockwork.NewFakeClock(), PolicyInPlace)
	w.FetchInitial(context.Background())

	w.handle(ChangeEvent{Table: Table, Type: EventDelete, Key: Key, Record: models.Settings{ID: 1, Maintenance: true}})
	assert.Equal(t, State{Mode: ModeNormal}, w.State())
}

func TestWatcher_ReconnectsAndResyncsAfterDrop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	repo := &fakeRepo{row: &models.Settings{ID: 1}}
	subs := &fakeSubscriber{}
	w := NewWatcher(repo, subs, clock, PolicyInPlace)

	runWatcher(t, w)
	require.Eventually(t, func() bool { return subs.count() == 1 }, time.Second, 5*time.Millisecond)
	first := subs.latest()

	// Published while the subscription is down.
	repo.set(true, "missed")
	first.drop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultReconnectBackoff)

	require.Eventually(t, func() bool { return subs.count() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return w.State().Maintenance() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "missed", w.State().Message)
	assert.True(t, first.isClosed())
}

func TestWatcher_RetriesFailedSubscribeWithBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	subs := &fakeSubscriber{fail: 2}
	w := NewWatcher(&fakeRepo{row: &models.Settings{ID: 1}}, subs, clock, PolicyInPlace)

	runWatcher(t, w)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// Second wait is doubled: one second is not enough.
	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, subs.count())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return subs.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWatcher_CloseReleasesSubscription(t *testing.T) {
	subs := &fakeSubscriber{}
	w := NewWatcher(&fakeRepo{row: &models.Settings{ID: 1}}, subs, clockwork.NewFakeClock(), PolicyInPlace)

	_, done := runWatcher(t, w)
	require.Eventually(t, func() bool { return subs.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.True(t, subs.latest().isClosed())
	assert.Equal(t, 1, subs.count(), "no reconnect after Close")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyInPlace, p)

	p, err = ParsePolicy("reload")
	require.NoError(t, err)
	assert.Equal(t, PolicyReload, p)

	_, err = ParsePolicy("refresh")
	assert.Error(t, err)
}
