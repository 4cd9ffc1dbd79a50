package main

// @title           Encantia API
// @version         1.0
// @description     Community portal backend: profiles, content, presence and live site settings
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "encantia/docs"
	"encantia/internal/api/routes"
	"encantia/internal/auth"
	"encantia/internal/config"
	"encantia/internal/database"
	"encantia/internal/logging"
	"encantia/internal/presence"
	"encantia/internal/repositories/postgres"
	"encantia/internal/services"
	"encantia/internal/settings"
	"encantia/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logging.Init(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(gin.ReleaseMode)
	slog.Info("Starting Encantia server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection; schema and settings row are ensured on boot
	db, err := database.Open(cfg.Database.Driver, cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize object storage", "error", err)
		os.Exit(1)
	}

	presenceStore, err := newPresenceStore(cfg, blobs, redisClient)
	if err != nil {
		slog.Error("Failed to initialize presence store", "error", err)
		os.Exit(1)
	}
	presenceCfg := presence.Config{
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		PollInterval:      cfg.Presence.PollInterval,
		OnlineThreshold:   cfg.Presence.OnlineThreshold,
	}

	changes, err := newNotifier(cfg, redisClient)
	if err != nil {
		slog.Error("Failed to initialize settings notifier", "notifier", cfg.Settings.Notifier, "error", err)
		os.Exit(1)
	}
	defer changes.Close()

	policy, err := settings.ParsePolicy(cfg.Settings.ChangePolicy)
	if err != nil {
		slog.Error("Invalid settings change policy", "error", err)
		os.Exit(1)
	}

	// Repositories
	settingsRepo := postgres.NewSettingsRepository(db)
	userRepo := postgres.NewUserRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	followRepo := postgres.NewFollowRepository(db)
	contentRepo := postgres.NewContentRepository(db)
	connectionRepo := postgres.NewConnectionRepository(db)

	// Live site settings
	watcher := settings.NewWatcher(settingsRepo, changes.subscriber, nil, policy)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Warn("Settings watcher stopped", "error", err)
		}
	}()

	// Server-wide view of who is online, used by the REST presence endpoints
	tracker := presence.NewTracker(presenceStore, nil, presenceCfg)
	go tracker.RunPoller(ctx)

	// Services
	redisService := services.NewRedisService(redisClient, nil)
	authStore := auth.NewRedisStore(redisClient)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpirationTime, authStore, nil)
	authService := auth.NewService(
		userRepo,
		tokens,
		authStore,
		newMailer(cfg.Mail),
		auth.NewOAuth(map[string]string{
			"github":  cfg.OAuth.GitHubClientID,
			"discord": cfg.OAuth.DiscordClientID,
			"gitlab":  cfg.OAuth.GitLabClientID,
			"google":  cfg.OAuth.GoogleClientID,
			"spotify": cfg.OAuth.SpotifyClientID,
		}),
		cfg.Server.PublicURL,
	)

	spotify := auth.NewSpotifyClient(cfg.OAuth.SpotifyClientID, cfg.OAuth.SpotifyClientSecret, cfg.Server.PublicURL,
		auth.NewLinkStates(cfg.JWT.Secret, auth.ProviderSpotify, nil))

	wsHandler := websocket.NewHandler(tokens, watcher, presenceStore, nil, presenceCfg, cfg.Server.AllowedOrigins)

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Deps{
		AuthService:       authService,
		Spotify:           spotify,
		SettingsService:   settings.NewService(settingsRepo, changes.publisher, watcher),
		Watcher:           watcher,
		Tracker:           tracker,
		ProfileService:    services.NewProfileService(profileRepo, blobs, nil),
		FollowService:     services.NewFollowService(followRepo),
		ContentService:    services.NewContentService(contentRepo, redisService, nil),
		SubmissionService: services.NewSubmissionService(contentRepo),
		ConnectionService: services.NewConnectionService(connectionRepo, nil),
		RedisService:      redisService,
		WSHandler:         wsHandler,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	})
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr, "presence", cfg.Presence.Backend, "notifier", cfg.Settings.Notifier)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Stop background loops first so nothing pushes to closing sockets
	cancel()
	if err := watcher.Close(); err != nil {
		slog.Warn("Failed to close settings subscription", "error", err)
	}
	wsHandler.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
