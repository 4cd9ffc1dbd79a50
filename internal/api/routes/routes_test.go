package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "encantia/docs"
	"encantia/internal/auth"
	"encantia/internal/models"
	"encantia/internal/presence"
	"encantia/internal/services"
	"encantia/internal/settings"
	"encantia/internal/storage"
	"encantia/internal/websocket"
	"encantia/pkg/response"
)

var epoch = time.UnixMilli(1_700_000_000_000)

type fixture struct {
	engine   *gin.Engine
	tokens   *auth.TokenManager
	watcher  *settings.Watcher
	tracker  *presence.Tracker
	settings *memSettings
	pub      *recordingPublisher
	content  *memContent
	spotify  *auth.SpotifyClient
}

func newFixture(t *testing.T, settle bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := clockwork.NewFakeClockAt(epoch)
	store := presence.NewDocumentStore(storage.NewMemoryStore(""), "status", "online.json")

	f := &fixture{
		tokens:   auth.NewTokenManager("routes-secret", time.Hour, auth.NewRedisStore(rdb), clock),
		settings: &memSettings{row: models.Settings{ID: models.SettingsRowID}},
		pub:      &recordingPublisher{},
		content:  &memContent{},
		tracker:  presence.NewTracker(store, clock, presence.DefaultConfig()),
		spotify:  auth.NewSpotifyClient("sp-id", "sp-secret", "http://localhost:8080", auth.NewLinkStates("routes-secret", auth.ProviderSpotify, clock)),
	}
	f.watcher = settings.NewWatcher(f.settings, nil, clock, settings.PolicyInPlace)
	if settle {
		f.watcher.FetchInitial(context.Background())
	}

	authService := auth.NewService(
		&memUsers{rows: map[string]models.User{}},
		f.tokens,
		auth.NewRedisStore(rdb),
		auth.LogMailer{},
		auth.NewOAuth(map[string]string{"github": "gh-client"}),
		"http://localhost:8080",
	)
	redisService := services.NewRedisService(rdb, nil)

	router := NewRouter(Deps{
		AuthService:       authService,
		Spotify:           f.spotify,
		SettingsService:   settings.NewService(f.settings, f.pub, f.watcher),
		Watcher:           f.watcher,
		Tracker:           f.tracker,
		ProfileService:    services.NewProfileService(&memProfiles{rows: map[string]models.Profile{}}, storage.NewMemoryStore("http://cdn.test"), clock),
		FollowService:     services.NewFollowService(&memFollows{edges: map[[2]string]bool{}}),
		ContentService:    services.NewContentService(f.content, nil, clock),
		SubmissionService: services.NewSubmissionService(f.content),
		ConnectionService: services.NewConnectionService(memConnections{}, clock),
		RedisService:      redisService,
		WSHandler:         websocket.NewHandler(f.tokens, f.watcher, store, clock, presence.DefaultConfig(), nil),
	})
	router.SetupRoutes()
	f.engine = router.GetEngine()
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) signUp(t *testing.T, email string) models.LoginResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", models.SignUpRequest{Email: email, Password: "secreto"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	tok, err := f.tokens.Issue(&models.User{ID: "admin-1", Email: "admin@encantia.lat", Role: models.RoleAdmin})
	require.NoError(t, err)
	return tok
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var res models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestHealthAndSwagger(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/health", "", nil).Code)

	w := f.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Encantia API")
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t, true)

	signed := f.signUp(t, "lectora@encantia.lat")
	assert.NotEmpty(t, signed.Token)
	assert.Equal(t, models.RoleUser, signed.User.Role)

	w := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", models.SignUpRequest{Email: "lectora@encantia.lat", Password: "otraclave"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeEmailTaken, errorCode(t, w).Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: "lectora@encantia.lat", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.AuthLoginFailed, errorCode(t, w).Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: "lectora@encantia.lat", Password: "secreto"})
	require.Equal(t, http.StatusOK, w.Code)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/auth/logout", login.Token, nil).Code)

	w = f.do(t, http.MethodGet, "/api/v1/me/profile", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.AuthTokenInvalid, errorCode(t, w).Code)
}

func TestAuthRoutesRequireToken(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/me/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.AuthTokenMissing, errorCode(t, w).Code)
}

func TestOAuthURL(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/auth/oauth/github?redirect_to=http://localhost:3000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res models.OAuthURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "github", res.Provider)
	assert.Contains(t, res.URL, "gh-client")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/auth/oauth/myspace", "", nil).Code)
}

func TestProfilesAndFollows(t *testing.T) {
	f := newFixture(t, true)
	a := f.signUp(t, "a@encantia.lat")
	b := f.signUp(t, "b@encantia.lat")

	w := f.do(t, http.MethodGet, "/api/v1/me/profile", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/me/profile", a.Token, models.CreateProfileRequest{Name: "Lectora"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/me/profile", b.Token, models.CreateProfileRequest{Name: "LECTORA"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeNameTaken, errorCode(t, w).Code)

	w = f.do(t, http.MethodGet, "/api/v1/me/profile", a.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Equal(t, "Lectora", mine.Name)

	w = f.do(t, http.MethodPost, "/api/v1/profiles/"+a.User.ID+"/follow", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/profiles/"+a.User.ID+"/follow", b.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status models.FollowStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Following)
	assert.EqualValues(t, 1, status.Counts.Followers)

	// anonymous viewers see counts but never "following"
	w = f.do(t, http.MethodGet, "/api/v1/profiles/"+a.User.ID+"/follow", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status = models.FollowStatusResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Following)
	assert.EqualValues(t, 1, status.Counts.Followers)

	w = f.do(t, http.MethodGet, "/api/v1/profiles/directory", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.DefaultDirectoryRole)
}

func TestContentEndpoints(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/v1/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, "/api/v1/alerts/latest", "", nil).Code)

	f.content.alerts = []models.Alert{{ID: 7, Message: "Hola", Type: models.AlertInfo, Active: true}}
	w = f.do(t, http.MethodGet, "/api/v1/alerts/latest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hola")

	user := f.signUp(t, "musica@encantia.lat")
	w = f.do(t, http.MethodPost, "/api/v1/music-requests", user.Token, models.MusicRequestRequest{MusicName: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/music-requests", user.Token, models.MusicRequestRequest{MusicName: "Canción", MusicLink: "https://example.com/c"})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.content.music, 1)
	assert.Equal(t, "musica@encantia.lat", f.content.music[0].Email)
}

func TestConnectionVisibility_NotLinked(t *testing.T) {
	f := newFixture(t, true)
	user := f.signUp(t, "spotify@encantia.lat")

	w := f.do(t, http.MethodPut, "/api/v1/me/connections/spotify/visibility", user.Token, models.SetConnectionVisibilityRequest{IsPublic: true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpotifyLogin_Redirects(t *testing.T) {
	f := newFixture(t, true)
	user := f.signUp(t, "spotify@encantia.lat")

	w := f.do(t, http.MethodGet, "/api/oauth/spotify?token="+user.Token, "", nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", loc.Host)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.NotContains(t, state, user.User.ID)

	assert.Equal(t, http.StatusFound, f.do(t, http.MethodGet, "/api/oauth/spotify", user.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/oauth/spotify?user_id="+user.User.ID, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/oauth/spotify?token=garbage", "", nil).Code)
}

func TestSpotifyCallback_LinksStateOwner(t *testing.T) {
	f := newFixture(t, true)
	user := f.signUp(t, "spotify@encantia.lat")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"refresh_token":"rt"}`))
	}))
	defer srv.Close()
	f.spotify.Config.Endpoint.TokenURL = srv.URL

	w := f.do(t, http.MethodGet, "/api/oauth/spotify?token="+user.Token, "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	w = f.do(t, http.MethodGet, "/api/oauth/callback/spotify?code=the-code&state="+url.QueryEscape(state), "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSpotifyCallback_RejectsForgedState(t *testing.T) {
	f := newFixture(t, true)
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	f.spotify.Config.Endpoint.TokenURL = srv.URL

	// a bare user id, and a state signed under another secret
	other := auth.NewSpotifyClient("sp-id", "sp-secret", "http://localhost:8080", auth.NewLinkStates("other-secret", auth.ProviderSpotify, nil))
	foreign, err := other.AuthorizeURL("victim")
	require.NoError(t, err)
	loc, err := url.Parse(foreign)
	require.NoError(t, err)

	for _, state := range []string{"victim", loc.Query().Get("state")} {
		w := f.do(t, http.MethodGet, "/api/oauth/callback/spotify?code=c&state="+url.QueryEscape(state), "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, response.ErrCodeParamInvalid, errorCode(t, w).Code)
	}
	assert.False(t, called, "no code exchange for a forged state")
}

func TestPresence(t *testing.T) {
	f := newFixture(t, true)
	user := f.signUp(t, "online@encantia.lat")

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/v1/presence/heartbeat", user.Token, nil).Code)
	f.tracker.Poll(context.Background())

	w := f.do(t, http.MethodGet, "/api/v1/presence", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res models.PresenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{user.User.ID}, res.Online)
	assert.Equal(t, epoch.UnixMilli(), res.LastPoll)

	w = f.do(t, http.MethodGet, "/api/v1/presence/"+user.User.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"online":true`)
}

func TestMaintenanceMode(t *testing.T) {
	f := newFixture(t, true)
	admin := f.adminToken(t)
	user := f.signUp(t, "visitante@encantia.lat")

	w := f.do(t, http.MethodPut, "/api/v1/admin/settings", user.Token, models.UpdateSettingsRequest{Maintenance: true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/admin/settings", admin, models.UpdateSettingsRequest{Maintenance: true, Message: "Volvemos pronto"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.settings.row.Maintenance)
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, settings.Key, f.pub.events[0].Key)

	// applied on this instance without waiting for the broadcast
	w = f.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	res := errorCode(t, w)
	assert.Equal(t, response.ErrCodeMaintenance, res.Code)
	assert.Equal(t, "Volvemos pronto", res.Details)

	w = f.do(t, http.MethodGet, "/api/v1/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"maintenance":true,"message":"Volvemos pronto","loading":false}`, w.Body.String())

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/events", admin, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/health", "", nil).Code)
}

func TestMaintenanceNotifyFailure(t *testing.T) {
	f := newFixture(t, true)
	f.pub.err = errors.New("broker down")

	w := f.do(t, http.MethodPut, "/api/v1/admin/settings", f.adminToken(t), models.UpdateSettingsRequest{Maintenance: true, Message: "down"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.ErrCodeUpstream, errorCode(t, w).Code)

	assert.True(t, f.settings.row.Maintenance, "row saved")
	assert.Equal(t, settings.State{Mode: settings.ModeMaintenance, Message: "down"}, f.watcher.State())
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/api/v1/events", "", nil).Code)
}

func TestMaintenanceWhileLoading(t *testing.T) {
	f := newFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = f.do(t, http.MethodGet, "/api/v1/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"loading":true`)
}
