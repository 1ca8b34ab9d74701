// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/cache"
	"github.com/olegiv/epress-go/internal/config"
	"github.com/olegiv/epress-go/internal/handler"
	"github.com/olegiv/epress-go/internal/imaging"
	"github.com/olegiv/epress-go/internal/logging"
	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
	"github.com/olegiv/epress-go/internal/scheduler"
	"github.com/olegiv/epress-go/internal/session"
	"github.com/olegiv/epress-go/internal/store"
	"github.com/olegiv/epress-go/internal/version"
	"github.com/olegiv/epress-go/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ePress - ePaper administration console\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_API_BASE_URL    Backend REST API base URL (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_SESSION_SECRET  Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_DB_PATH         SQLite database path (default: ./data/epress.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  EPRESS_REDIS_URL       Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("epress %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(textHandler))

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize the local database (sessions + audit events)
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	logger := slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	events := store.NewEvents(db)

	// Session manager backed by the local database
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Edition cache: redis when configured, in-memory otherwise
	cacheTTL := time.Duration(cfg.CacheTTL) * time.Second
	var byteCache cache.Cache
	if cfg.UseRedisCache() {
		rc, err := cache.NewRedisCache(cache.RedisCacheOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.CachePrefix,
			DefaultTTL: cacheTTL,
		})
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache", "error", err)
			byteCache = cache.NewMemoryCache(cache.MemoryCacheOptions{
				DefaultTTL:      cacheTTL,
				MaxSize:         cfg.CacheMaxSize,
				CleanupInterval: time.Minute,
			})
		} else {
			slog.Info("edition cache initialized", "backend", "redis", "url", cfg.RedisURL)
			byteCache = rc
		}
	} else {
		byteCache = cache.NewMemoryCache(cache.MemoryCacheOptions{
			DefaultTTL:      cacheTTL,
			MaxSize:         cfg.CacheMaxSize,
			CleanupInterval: time.Minute,
		})
		slog.Info("edition cache initialized", "backend", "memory")
	}
	defer func() {
		if err := byteCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	editions := cache.NewEditions(byteCache, cacheTTL)

	// Backend API client; the bearer token comes from the request session
	client := api.New(cfg.APIBaseURL, cfg.APIRequestTimeout(), session.Tokens{SM: sessionManager}, logger)
	slog.Info("backend client initialized", "base_url", cfg.APIBaseURL)

	// Template renderer over the embedded templates
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Background jobs: edition cache prewarm, event log purge
	sched := scheduler.New(client, editions, events, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	normalizer := imaging.NewNormalizer(cfg.MaxImageEdge)

	// Handlers
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	authHandler := handler.NewAuthHandler(client, renderer, sessionManager, loginProtection, events)
	adminHandler := handler.NewAdminHandler(client, renderer, events)
	usersHandler := handler.NewUsersHandler(client, renderer, events)
	epapersHandler := handler.NewEpapersHandler(client, renderer, events, editions, normalizer)
	frontendHandler := handler.NewFrontendHandler(client, renderer, editions)
	healthHandler := handler.NewHealthHandler(db)

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(60 * time.Second))

	apiOrigin := ""
	if u, err := url.Parse(cfg.APIBaseURL); err == nil {
		apiOrigin = u.Scheme + "://" + u.Host
	}
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment(), apiOrigin)))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment()))
	publicRateLimiter := middleware.NewGlobalRateLimiter(20, 40)

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Public reader + sign-in
	r.Group(func(r chi.Router) {
		r.Use(publicRateLimiter.Middleware())
		r.Use(csrfMiddleware)

		r.Get(handler.RouteRoot, frontendHandler.Landing)
		r.Get(handler.RouteSignin, authHandler.SigninForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteSignin, authHandler.Signin)
		r.Get(handler.RouteSignout, authHandler.Signout)
		r.Post(handler.RouteSignout, authHandler.Signout)
	})

	// Admin console
	r.Route("/admin", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager))

		r.Get(handler.RouteRoot, adminHandler.Dashboard)

		// User management: SuperAdmin and Admin only; Staff is silently
		// sent back to the dashboard.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles("/admin", model.RoleSuperAdmin, model.RoleAdmin))

			r.Get(handler.RouteUsers, usersHandler.List)
			r.Get(handler.RouteUsersCreate, usersHandler.NewForm)
			r.Post(handler.RouteUsersCreate, usersHandler.Create)
			r.Get(handler.RouteUsersEdit, usersHandler.EditForm)
			r.Post(handler.RouteUsersEdit, usersHandler.Update)
			r.Post(handler.RouteUsersDelete, usersHandler.Delete)
		})

		r.Get(handler.RouteEpapers, epapersHandler.List)
		r.Get(handler.RouteEpapersCreate, epapersHandler.NewForm)
		r.Post(handler.RouteEpapersCreate, epapersHandler.Create)
		r.Get(handler.RouteEpapersEdit, epapersHandler.EditForm)
		r.Post(handler.RouteEpapersEdit, epapersHandler.Update)
		r.Get(handler.RouteEpapersView, epapersHandler.View)
		r.Post(handler.RouteEpapersDelete, epapersHandler.Delete)
		r.Post(handler.RouteEpapersReorder, epapersHandler.Reorder)
		r.Post(handler.RouteEpapersImageDelete, epapersHandler.DeleteImage)
		r.Get(handler.RouteEpapersPDF, epapersHandler.DownloadPDF)
	})

	// Embedded static assets with long-lived caching
	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	staticHandler := http.StripPrefix("/static/dist/", http.FileServer(http.FS(staticFS)))
	r.Handle("/static/dist/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000")
		staticHandler.ServeHTTP(w, req)
	}))

	// Everything else is the public not-found page
	r.NotFound(frontendHandler.NotFound)

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", appVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
