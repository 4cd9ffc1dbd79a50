package routes

import (
	"context"
	"strings"
	"sync"

	"encantia/internal/models"
	"encantia/internal/repositories"
	"encantia/internal/settings"
)

type memUsers struct {
	mu   sync.Mutex
	rows map[string]models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return repositories.ErrDuplicate
		}
	}
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Password = hash
	m.rows[id] = u
	return nil
}

type memProfiles struct {
	mu   sync.Mutex
	rows map[string]models.Profile
}

func (m *memProfiles) FindByUserID(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) FindByName(_ context.Context, name string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if strings.EqualFold(p.Name, name) {
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memProfiles) List(context.Context) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Profile, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProfiles) Create(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.UserID] = *p
	return nil
}

func (m *memProfiles) Update(_ context.Context, p *models.Profile) error {
	return m.Create(context.Background(), p)
}

type memFollows struct {
	mu    sync.Mutex
	edges map[[2]string]bool
}

func (m *memFollows) Exists(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[[2]string{a, b}], nil
}

func (m *memFollows) Create(_ context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[[2]string{a, b}] = true
	return nil
}

func (m *memFollows) Delete(_ context.Context, a, b string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.edges, [2]string{a, b})
	return nil
}

func (m *memFollows) Counts(_ context.Context, userID string) (models.FollowCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c models.FollowCounts
	for e := range m.edges {
		if e[1] == userID {
			c.Followers++
		}
		if e[0] == userID {
			c.Following++
		}
	}
	return c, nil
}

type memContent struct {
	mu     sync.Mutex
	events []models.Event
	alerts []models.Alert
	music  []models.MusicRequest
}

func (m *memContent) ListEvents(context.Context) ([]models.Event, error) { return m.events, nil }
func (m *memContent) ListBooks(context.Context) ([]models.Book, error)   { return nil, nil }
func (m *memContent) ListTeam(context.Context) ([]models.TeamMember, error) {
	return nil, nil
}
func (m *memContent) ListUpdates(context.Context) ([]models.Update, error) { return nil, nil }
func (m *memContent) ListActiveAlerts(context.Context) ([]models.Alert, error) {
	return m.alerts, nil
}

func (m *memContent) CreateTeamApplication(context.Context, *models.TeamApplication) error {
	return nil
}

func (m *memContent) CreateMusicRequest(_ context.Context, r *models.MusicRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.music = append(m.music, *r)
	return nil
}

type memConnections struct{}

func (memConnections) Find(context.Context, string, string) (*models.Connection, error) {
	return nil, repositories.ErrNotFound
}
func (memConnections) Upsert(context.Context, *models.Connection) error { return nil }
func (memConnections) SetPublic(context.Context, string, string, bool) error {
	return repositories.ErrNotFound
}

type memSettings struct {
	mu  sync.Mutex
	row models.Settings
}

func (m *memSettings) Get(context.Context) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.row
	return &row, nil
}

func (m *memSettings) Save(_ context.Context, row *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.row = *row
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []settings.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev settings.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}
