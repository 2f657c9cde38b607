package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuneguess/internal/config"
	"tuneguess/internal/domain"
	"tuneguess/internal/handler"
	"tuneguess/internal/middleware"
	"tuneguess/internal/musicbrainz"
	"tuneguess/internal/observability"
	"tuneguess/internal/repository/postgres"
	"tuneguess/internal/security"
	"tuneguess/internal/service"
	"tuneguess/internal/spotify"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions whose credentials have been expired this long are reaped; no
// refresh will be attempted for them anymore.
const sessionGrace = 7 * 24 * time.Hour

func main() {
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	observability.InitLogger(logLevel, logFormat)

	slog.Info("starting tuneguess server")

	connCtx, connCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer connCancel()

	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(connCtx); err != nil {
		slog.Error("database ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to postgresql")

	if err := postgres.Migrate(db); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("schema migrations applied")

	sessionRepo, err := postgres.NewSessionRepository(db)
	if err != nil {
		slog.Error("failed to init session repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	trackRepo, err := postgres.NewTrackRepository(db)
	if err != nil {
		slog.Error("failed to init track repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	playlistRepo, err := postgres.NewPlaylistRepository(db)
	if err != nil {
		slog.Error("failed to init playlist repository", slog.String("error", err.Error()))
		os.Exit(1)
	}

	spotifyClient := spotify.NewClient(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURI:  cfg.SpotifyRedirectURI,
	})
	mbClient := musicbrainz.NewClient(cfg.MusicBrainzURL)

	authService := service.NewAuthService(sessionRepo, security.NewStateGenerator(), spotifyClient)
	tokenService := service.NewTokenService(sessionRepo, spotifyClient)
	gameService := service.NewGameService(sessionRepo, trackRepo, tokenService, spotifyClient, mbClient)
	playlistService := service.NewPlaylistService(playlistRepo, tokenService, spotifyClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startReapers(ctx, sessionRepo, trackRepo)
	go startDBStatsCollector(ctx, db)
	slog.Info("background reapers started")

	authHandler := handler.NewAuthHandler(authService, tokenService)
	gameHandler := handler.NewGameHandler(gameService)
	playlistHandler := handler.NewPlaylistHandler(playlistService)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.AllowedOrigins)))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db))
	r.Handle("/metrics", promhttp.Handler())

	authLimiter := middleware.NewRateLimiter(ctx, 5, 10)
	apiLimiter := middleware.NewRateLimiter(ctx, 20, 50)

	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware())
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLimiter.Middleware())

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(sessionRepo))
			r.Get("/spotify/token", authHandler.Token)
			r.Get("/spotify/session", authHandler.Session)
			r.Delete("/spotify/session", authHandler.Delete)
			r.Get("/game/next-track", gameHandler.NextTrack)
			r.Post("/game/play", gameHandler.Play)
			r.Post("/game/reset", gameHandler.Reset)
			r.Get("/game/history", gameHandler.History)
			r.Post("/playlists", playlistHandler.Add)
		})

		r.Get("/playlists", playlistHandler.List)
		r.Delete("/playlists/{id}", playlistHandler.Remove)
		r.Patch("/playlists/{id}/icon", playlistHandler.UpdateIcon)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("tuneguess server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()

	slog.Info("server stopped gracefully")
}

// startReapers runs the background TTL expiry for sessions and play records.
// Playlist entries expire lazily on read and are not reaped.
func startReapers(ctx context.Context, sessionRepo domain.SessionRepository, trackRepo domain.TrackRepository) {
	sessionTicker := time.NewTicker(1 * time.Hour)
	defer sessionTicker.Stop()
	trackTicker := time.NewTicker(5 * time.Minute)
	defer trackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping background reapers")
			return

		case <-sessionTicker.C:
			reapCtx, reapCancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := sessionRepo.DeleteExpired(reapCtx, sessionGrace)
			reapCancel()
			if err != nil {
				slog.Error("session reaper failed", slog.String("error", err.Error()))
			} else if count > 0 {
				observability.ExpiredRecordsReaped.WithLabelValues("sessions").Add(float64(count))
				slog.Info("session reaper completed", slog.Int64("sessions_deleted", count))
			}

		case <-trackTicker.C:
			reapCtx, reapCancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := trackRepo.DeleteExpired(reapCtx)
			reapCancel()
			if err != nil {
				slog.Error("track reaper failed", slog.String("error", err.Error()))
			} else if count > 0 {
				observability.ExpiredRecordsReaped.WithLabelValues("tracks").Add(float64(count))
				slog.Info("track reaper completed", slog.Int64("tracks_deleted", count))
			}
		}
	}
}

// startDBStatsCollector keeps connection pool gauges fresh.
func startDBStatsCollector(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.CollectDBStats(db)
		}
	}
}
