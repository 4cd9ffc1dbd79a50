package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"encantia/internal/api/handlers"
	"encantia/internal/api/middleware"
	"encantia/internal/auth"
	"encantia/internal/presence"
	"encantia/internal/services"
	"encantia/internal/session"
	"encantia/internal/settings"
	"encantia/internal/websocket"
)

// Deps is everything the HTTP layer needs, built by cmd/server.
type Deps struct {
	AuthService       *auth.Service
	Spotify           *auth.SpotifyClient
	SettingsService   *settings.Service
	Watcher           *settings.Watcher
	Tracker           *presence.Tracker
	ProfileService    *services.ProfileService
	FollowService     *services.FollowService
	ContentService    *services.ContentService
	SubmissionService *services.SubmissionService
	ConnectionService *services.ConnectionService
	RedisService      *services.RedisService
	WSHandler         *websocket.Handler
	AllowedOrigins    []string
}

type Router struct {
	engine            *gin.Engine
	wsHandler         *websocket.Handler
	authHandler       *handlers.AuthHandler
	settingsHandler   *handlers.SettingsHandler
	presenceHandler   *handlers.PresenceHandler
	profileHandler    *handlers.ProfileHandler
	contentHandler    *handlers.ContentHandler
	connectionHandler *handlers.ConnectionHandler
	watcher           *settings.Watcher
	rateLimitMW       *middleware.RateLimitMiddleware
	authMW            *middleware.AuthMiddleware
}

func NewRouter(deps Deps) *Router {
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())

	var loader session.ProfileLoader
	if deps.ProfileService != nil {
		loader = deps.ProfileService.Get
	}

	return &Router{
		engine:            engine,
		wsHandler:         deps.WSHandler,
		authHandler:       handlers.NewAuthHandler(deps.AuthService),
		settingsHandler:   handlers.NewSettingsHandler(deps.SettingsService, deps.Watcher),
		presenceHandler:   handlers.NewPresenceHandler(deps.Tracker),
		profileHandler:    handlers.NewProfileHandler(deps.ProfileService, deps.FollowService),
		contentHandler:    handlers.NewContentHandler(deps.ContentService, deps.SubmissionService),
		connectionHandler: handlers.NewConnectionHandler(deps.ConnectionService, deps.Spotify),
		watcher:           deps.Watcher,
		rateLimitMW:       middleware.NewRateLimitMiddleware(deps.RedisService),
		authMW:            middleware.NewAuthMiddleware(deps.AuthService.Tokens(), loader),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Spotify linking, reached by browser redirects rather than API calls
	oauth := r.engine.Group("/api/oauth")
	oauth.Use(r.rateLimitMW.RateLimitIP(30, time.Minute))
	{
		oauth.GET("/spotify", r.authMW.RequireAuthOrQuery("token"), r.connectionHandler.SpotifyLogin)
		oauth.GET("/callback/spotify", r.connectionHandler.SpotifyCallback)
	}

	api := r.engine.Group("/api/v1")
	api.Use(r.authMW.OptionalAuth())
	api.Use(middleware.Maintenance(r.watcher,
		"/api/v1/health",
		"/api/v1/settings",
		"/api/v1/admin",
		"/api/v1/auth/login",
		"/api/v1/ws",
	))

	api.GET("/health", handlers.Health)
	api.GET("/settings", r.settingsHandler.GetSettings)

	// WebSocket endpoint, authenticated by ?token=
	api.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(20, time.Minute), // 20 connections per minute per IP
		r.wsHandler.Serve,
	)

	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.POST("/signup", r.authHandler.SignUp)
		authRoutes.POST("/login", r.authHandler.Login)
		authRoutes.POST("/password/reset", r.authHandler.RequestPasswordReset)
		authRoutes.POST("/password/reset/confirm", r.authHandler.ConfirmPasswordReset)
		authRoutes.GET("/oauth/:provider", r.authHandler.OAuthURL)
	}

	// Public routes (no authentication required)
	public := api.Group("/")
	public.Use(r.rateLimitMW.RateLimitIP(300, time.Minute))
	{
		public.GET("/presence", r.presenceHandler.Online)
		public.GET("/presence/:id", r.presenceHandler.UserStatus)

		public.GET("/profiles", r.profileHandler.ListProfiles)
		public.GET("/profiles/directory", r.profileHandler.Directory)
		public.GET("/profiles/:id", r.profileHandler.GetProfile)
		public.GET("/profiles/:id/follow", r.profileHandler.FollowStatus)
		public.GET("/profiles/:id/connections/:provider", r.connectionHandler.GetConnection)

		public.GET("/events", r.contentHandler.Events)
		public.GET("/books", r.contentHandler.Books)
		public.GET("/team", r.contentHandler.Team)
		public.GET("/updates", r.contentHandler.Updates)
		public.GET("/alerts", r.contentHandler.Alerts)
		public.GET("/alerts/latest", r.contentHandler.LatestAlert)
	}

	// Authenticated routes
	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	authed.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
	{
		authed.POST("/auth/logout", r.authHandler.Logout)
		authed.PUT("/auth/password", r.authHandler.UpdatePassword)

		authed.POST("/presence/heartbeat", r.presenceHandler.Heartbeat)

		authed.GET("/me/profile", r.profileHandler.GetMyProfile)
		authed.POST("/me/profile", r.profileHandler.CreateProfile)
		authed.PUT("/me/profile", r.profileHandler.UpdateProfile)
		authed.POST("/me/profile/avatar", r.profileHandler.UploadAvatar)
		authed.POST("/profiles/:id/follow", r.profileHandler.ToggleFollow)

		authed.PUT("/me/connections/:provider/visibility", r.connectionHandler.SetVisibility)

		authed.POST("/music-requests", r.contentHandler.SubmitMusic)
		authed.POST("/team/applications", r.contentHandler.ApplyToTeam)
	}

	admin := api.Group("/admin")
	admin.Use(r.authMW.RequireAuth(), r.authMW.RequireAdmin())
	{
		admin.PUT("/settings", r.settingsHandler.UpdateSettings)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
