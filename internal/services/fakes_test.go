package services

import (
	"context"
	"strings"
	"sync"

	"encantia/internal/models"
	"encantia/internal/repositories"
)

type memProfiles struct {
	mu      sync.Mutex
	rows    map[string]models.Profile
	findErr error
}

func newMemProfiles(ps ...models.Profile) *memProfiles {
	m := &memProfiles{rows: map[string]models.Profile{}}
	for _, p := range ps {
		m.rows[p.UserID] = p
	}
	return m
}

func (m *memProfiles) FindByUserID(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
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
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
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
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.UserID] = *p
	return nil
}

type memFollows struct {
	edges map[[2]string]bool
}

func newMemFollows() *memFollows { return &memFollows{edges: map[[2]string]bool{}} }

func (m *memFollows) Exists(_ context.Context, a, b string) (bool, error) {
	return m.edges[[2]string{a, b}], nil
}

func (m *memFollows) Create(_ context.Context, a, b string) error {
	m.edges[[2]string{a, b}] = true
	return nil
}

func (m *memFollows) Delete(_ context.Context, a, b string) error {
	delete(m.edges, [2]string{a, b})
	return nil
}

func (m *memFollows) Counts(_ context.Context, userID string) (models.FollowCounts, error) {
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
	events  []models.Event
	books   []models.Book
	team    []models.TeamMember
	updates []models.Update
	alerts  []models.Alert

	bookLoads    int
	applications []models.TeamApplication
	music        []models.MusicRequest
}

func (m *memContent) ListEvents(context.Context) ([]models.Event, error) { return m.events, nil }

func (m *memContent) ListBooks(context.Context) ([]models.Book, error) {
	m.bookLoads++
	return m.books, nil
}

func (m *memContent) ListTeam(context.Context) ([]models.TeamMember, error) { return m.team, nil }
func (m *memContent) ListUpdates(context.Context) ([]models.Update, error)  { return m.updates, nil }

func (m *memContent) ListActiveAlerts(context.Context) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range m.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memContent) CreateTeamApplication(_ context.Context, a *models.TeamApplication) error {
	m.applications = append(m.applications, *a)
	return nil
}

func (m *memContent) CreateMusicRequest(_ context.Context, r *models.MusicRequest) error {
	m.music = append(m.music, *r)
	return nil
}

type memConnections struct {
	rows map[string]models.Connection
}

func (m *memConnections) Find(_ context.Context, userID, provider string) (*models.Connection, error) {
	c, ok := m.rows[userID+"/"+provider]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (m *memConnections) Upsert(_ context.Context, c *models.Connection) error {
	key := c.UserID + "/" + c.Provider
	if old, ok := m.rows[key]; ok {
		c.IsPublic = old.IsPublic
	}
	m.rows[key] = *c
	return nil
}

func (m *memConnections) SetPublic(_ context.Context, userID, provider string, public bool) error {
	key := userID + "/" + provider
	c, ok := m.rows[key]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsPublic = public
	m.rows[key] = c
	return nil
}
