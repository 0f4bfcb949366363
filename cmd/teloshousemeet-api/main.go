package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ARedaUni/teloshousemeet/internal/api"
	"github.com/ARedaUni/teloshousemeet/internal/api/handlers"
	"github.com/ARedaUni/teloshousemeet/internal/auth"
	"github.com/ARedaUni/teloshousemeet/internal/config"
	"github.com/ARedaUni/teloshousemeet/internal/db"
	"github.com/ARedaUni/teloshousemeet/internal/embedding"
	"github.com/ARedaUni/teloshousemeet/internal/google"
	"github.com/ARedaUni/teloshousemeet/internal/health"
	"github.com/ARedaUni/teloshousemeet/internal/logger"
	"github.com/ARedaUni/teloshousemeet/internal/matching"
	"github.com/ARedaUni/teloshousemeet/internal/repository"
	"github.com/ARedaUni/teloshousemeet/internal/retry"
	"github.com/ARedaUni/teloshousemeet/internal/scheduler"
	"github.com/ARedaUni/teloshousemeet/internal/service"
	"github.com/ARedaUni/teloshousemeet/internal/transcription"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load and validate configuration first (before logger)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger with configuration
	logger.Init(cfg.Logger)

	logger.Info().
		Str("environment", cfg.Logger.Environment).
		Str("log_level", cfg.Logger.Level).
		Msg("configuration loaded successfully")

	// Run migrations before connecting to database
	logger.Info().Msg("running database migrations")
	if err := db.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Initialize database
	ctx := context.Background()
	database, err := db.NewDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("database connected successfully")

	// Initialize repositories
	settingsRepo := repository.NewSettingsRepository(database.Pool)
	oauthRepo := repository.NewOAuthRepository(database.Pool)
	recordingRepo := repository.NewRecordingRepository(database.Pool)

	// Build the embedding provider with retry and caching layers
	embedder, err := embedding.NewCached(
		embedding.WithRetry(embedding.NewClient(cfg.Embedding), retry.DefaultPolicy()),
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build embedding cache")
	}
	if cfg.Embedding.APIKey == "" {
		logger.Warn().Msg("JINA_API_KEY not set, matching will use the lexical fallback only")
	}

	matcher := matching.NewMatcher(matcherConfig(cfg.Matching), embedder)

	// Initialize Google-backed services (feature-flagged on OAuth credentials)
	var oauthHandler *handlers.OAuthHandler
	var matchHandler *handlers.MatchHandler
	var pipelineService *service.PipelineService
	var driveService *google.DriveService

	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		googleOAuthService, err := google.NewOAuthService(cfg, oauthRepo)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Google OAuth service")
		} else {
			oauthHandler = handlers.NewOAuthHandler(googleOAuthService, cfg.CORS.FrontendURL)

			calendarService := google.NewCalendarService(googleOAuthService, settingsRepo, google.WindowFromConfig(cfg.Matching))
			driveService = google.NewDriveService(googleOAuthService)
			transcriptionClient := transcription.NewClient(cfg.Transcription)

			matchService := service.NewMatchService(calendarService, matcher)
			matchHandler = handlers.NewMatchHandler(matchService)

			pipelineService = service.NewPipelineService(
				driveService,
				transcriptionClient,
				recordingRepo,
				settingsRepo,
				matchService,
			)

			logger.Info().Msg("Google OAuth service initialized")
		}
	} else {
		logger.Info().Msg("Google OAuth not configured (GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET required)")
	}

	// Initialize handlers
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)
	recordingsHandler := handlers.NewRecordingsHandler(recordingRepo, pipelineService, driveService)

	// Initialize and start scheduler
	if cfg.Features.EnableScheduler && pipelineService != nil {
		cronScheduler := scheduler.NewScheduler(pipelineService, scheduler.DefaultCronSpec)
		if err := cronScheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer cronScheduler.Stop()
	}

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.CORSMiddleware(cfg.CORS))
	router.Use(api.ErrorHandlerMiddleware())

	// Health check endpoints
	router.GET("/health", health.HealthHandler)
	router.GET("/ready", health.ReadyHandler(database, cfg.Database.HealthTimeout))

	// OAuth callback route (no auth - called by Google redirect)
	if oauthHandler != nil {
		router.GET("/api/v1/auth/google/callback", oauthHandler.GoogleCallback)
	}

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.APIKeyMiddleware(cfg))
	{
		// Settings routes
		settings := v1.Group("/settings")
		{
			settings.GET("", settingsHandler.ListSettings)
			settings.GET("/:key", settingsHandler.GetSetting)
			settings.PUT("/:key", settingsHandler.SetSetting)
			settings.DELETE("/:key", settingsHandler.DeleteSetting)
		}

		// Recording routes
		recordings := v1.Group("/recordings")
		{
			recordings.GET("", recordingsHandler.ListRecordings)
			recordings.GET("/:id", recordingsHandler.GetRecording)
			if pipelineService != nil {
				recordings.POST("/discover", recordingsHandler.DiscoverRecordings)
				recordings.POST("/process", recordingsHandler.ProcessRecordings)
			}
			if driveService != nil {
				recordings.GET("/:id/content", recordingsHandler.DownloadRecording)
			}
		}

		// Matching route (requires Google Calendar access)
		if matchHandler != nil {
			v1.POST("/match", matchHandler.Match)
		}

		// OAuth routes
		if oauthHandler != nil {
			authRoutes := v1.Group("/auth")
			{
				authRoutes.GET("/google", oauthHandler.GetGoogleAuthURL)
				authRoutes.GET("/google/accounts", oauthHandler.ListGoogleAccounts)
				authRoutes.POST("/google/accounts/:id/revoke", oauthHandler.RevokeGoogleAccount)
			}
		}
	}

	// Start server with configured bind address
	addr := cfg.GetBindAddress()
	// Use a listener so we can discover the selected port when PORT=0
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("failed to bind listener")
	}

	// Discover the actual port (useful when PORT=0)
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		logger.Fatal().Msg("failed to determine TCP address")
	}
	selectedPort := tcpAddr.Port

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Info().
			Int("port", selectedPort).
			Str("addr", cfg.Server.Host).
			Msg("starting server")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests a configured timeout to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")

	// Print the selected port on graceful exit for supervising processes
	fmt.Printf("PORT=%d\n", selectedPort) //nolint:forbidigo // Intentional stdout output for supervisor
}

// matcherConfig maps matching tunables onto the matcher defaults
func matcherConfig(cfg config.MatchingConfig) matching.Config {
	mc := matching.DefaultConfig()
	mc.TitleWeight = cfg.TitleWeight
	mc.FullTextWeight = cfg.FullTextWeight
	mc.EmbeddingThreshold = cfg.EmbeddingThreshold
	mc.LexicalThreshold = cfg.LexicalThreshold
	return mc
}
