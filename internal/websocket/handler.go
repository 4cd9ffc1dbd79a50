// Package websocket pushes live state to browsers: the site mode from the
// settings watcher and the online list from a per-connection presence tracker.
package websocket

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"encantia/internal/auth"
	"encantia/internal/presence"
	"encantia/internal/settings"
	"encantia/pkg/response"
)

type Handler struct {
	tokens   *auth.TokenManager
	watcher  *settings.Watcher
	store    presence.Store
	clock    clockwork.Clock
	presence presence.Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
}

func NewHandler(tokens *auth.TokenManager, watcher *settings.Watcher, store presence.Store, clock clockwork.Clock, cfg presence.Config, allowedOrigins []string) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		tokens:   tokens,
		watcher:  watcher,
		store:    store,
		clock:    clock,
		presence: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		clients: make(map[string]*Client),
	}
}

// originChecker allows any origin when none are configured.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Serve godoc
// @Summary Live updates
// @Description Pushes settings, reload and presence frames. Anonymous viewers get no heartbeat.
// @Tags websocket
// @Param token query string false "Session token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse "Invalid token"
// @Router /ws [get]
func (h *Handler) Serve(c *gin.Context) {
	ctx := c.Request.Context()

	var userID string
	if raw := c.Query("token"); raw != "" {
		claims, err := h.tokens.Parse(ctx, raw)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.AuthTokenInvalid, "")
			return
		}
		userID = claims.Subject
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "userID", userID, "error", err)
		return
	}

	client := newClient(ctx, conn, userID)
	h.register(client)
	defer h.unregister(client)

	h.run(client)
}

// run wires one client to the watcher and its own presence tracker and
// blocks until the peer goes away. Every listener and loop started here is
// stopped before it returns.
func (h *Handler) run(client *Client) {
	userID := client.UserID()
	tracker := presence.NewTracker(h.store, h.clock, h.presence)

	removePoll := tracker.OnPoll(func(presence.Snapshot) {
		msg := PresenceMessage{
			Type:     MessageTypePresence,
			Online:   tracker.Online(),
			Self:     userID != "" && tracker.IsOnline(userID),
			LastPoll: tracker.LastPoll().UnixMilli(),
		}
		_ = client.Send(msg)
	})
	removeWatch := h.watcher.Watch(func(ch settings.Change) {
		_ = client.Send(changeMessage(ch))
	})

	go client.writePump()
	sess := tracker.Start(client.ctx, userID)

	client.readPump()

	removeWatch()
	removePoll()
	sess.Stop()
	client.close()
}

func (h *Handler) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("Client registered", "clientID", c.id, "userID", c.userID, "clients", n)
}

func (h *Handler) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("Client unregistered", "clientID", c.id, "userID", c.userID, "clients", n)
}

// Count is the number of open connections.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client. http.Server.Shutdown does not touch
// hijacked connections, so the server calls this on the way down.
func (h *Handler) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
