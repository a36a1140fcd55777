// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/hoppr-go/internal/analytics"
	"github.com/olegiv/hoppr-go/internal/auth"
	"github.com/olegiv/hoppr-go/internal/cache"
	"github.com/olegiv/hoppr-go/internal/config"
	"github.com/olegiv/hoppr-go/internal/geoip"
	"github.com/olegiv/hoppr-go/internal/handler"
	"github.com/olegiv/hoppr-go/internal/handler/api"
	"github.com/olegiv/hoppr-go/internal/hooks"
	"github.com/olegiv/hoppr-go/internal/logging"
	"github.com/olegiv/hoppr-go/internal/metrics"
	"github.com/olegiv/hoppr-go/internal/middleware"
	"github.com/olegiv/hoppr-go/internal/qrcode"
	"github.com/olegiv/hoppr-go/internal/redirect"
	"github.com/olegiv/hoppr-go/internal/safety"
	"github.com/olegiv/hoppr-go/internal/scheduler"
	"github.com/olegiv/hoppr-go/internal/settings"
	"github.com/olegiv/hoppr-go/internal/store"
	"github.com/olegiv/hoppr-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Admin API rate limit per client IP.
const (
	apiRatePerSecond = 5
	apiRateBurst     = 20
)

const apiTimeout = 20 * time.Second

func buildInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	hashToken := flag.String("hash-token", "", "Print the argon2id hash of an admin token and exit")
	genToken := flag.Bool("gen-token", false, "Generate a random admin token and its hash, then exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Hoppr - URL redirect dispatcher\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_DB_DRIVER         sqlite|sqlite3|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_DB_DSN            Database path or DSN (default: ./data/hoppr.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_BASE_URL          Public origin of the short links\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_ADMIN_TOKEN_HASH  argon2id hash of the admin API token\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_REDIS_URL         Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  HOPPR_GEOIP_DB_PATH     GeoLite2-Country.mmdb path (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/hoppr-go\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(buildInfo().String())
		os.Exit(0)
	}

	if *hashToken != "" || *genToken {
		if err := printToken(*hashToken); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// printToken hashes token, generating one first when it is empty.
func printToken(token string) error {
	if token == "" {
		t, err := auth.GenerateToken()
		if err != nil {
			return err
		}
		token = t
		_, _ = fmt.Printf("token: %s\n", token)
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("HOPPR_ADMIN_TOKEN_HASH=%s\n", hash)
	return nil
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := buildInfo()

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.DBDriver != config.DriverMySQL {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o750); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN, store.DefaultDBConfig())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	queries := db.Queries()

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, queries))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()

	prov := settings.NewProvider(queries, logger)
	if err := prov.Load(ctx); err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	ruleCache, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      prov.CacheTTL(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = ruleCache.Close() }()
	if cfg.UseRedisCache() {
		slog.Info("rule cache initialized", "backend", "redis", "url", cache.SanitizeRedisURL(cfg.RedisURL))
	} else {
		slog.Info("rule cache initialized", "backend", "memory", "max_size", cfg.CacheMaxSize)
	}

	geo := geoip.NewLookup()
	if err := geo.Init(cfg.GeoIPDBPath); err != nil {
		slog.Warn("geoip database unavailable, falling back to proxy headers", "error", err)
	}
	defer func() { _ = geo.Close() }()

	checker := safety.NewChecker(prov, safety.Options{
		Timeout:  cfg.DNSTimeout,
		CacheTTL: cfg.DNSCacheTTL,
	}, logger)

	// Cache invalidation subscribes first so QR rendering sees fresh lookups.
	bus := hooks.NewBus(logger)
	ruleStore := redirect.NewStore(queries, ruleCache, prov, logger)
	ruleStore.Subscribe(bus)
	matcher := redirect.NewMatcher(ruleStore)
	manager := redirect.NewManager(queries, bus, logger)

	tracker := analytics.NewTracker(queries, analytics.NewStoreSaltProvider(queries), logger)
	reporter := analytics.NewReporter(queries)

	qr, err := qrcode.NewGenerator(queries, prov, qrcode.Options{
		Dir:       cfg.QRDir,
		BaseURL:   cfg.BaseURL,
		APIURL:    cfg.QRAPIURL,
		UserAgent: versionInfo.UserAgent("qr"),
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing qr generator: %w", err)
	}
	qr.Subscribe(bus)
	defer qr.Wait()

	var stats cache.StatsProvider
	if sp, ok := ruleCache.(cache.StatsProvider); ok {
		stats = sp
	}
	m := metrics.New(stats)

	sched := scheduler.New(scheduler.Jobs{
		Clicks:    tracker,
		Retention: prov,
		Events:    queries,
		GeoIP:     geo,
		QR:        qr,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if n, err := ruleStore.Warm(ctx); err != nil {
		slog.Warn("failed to warm rule cache", "error", err)
	} else {
		slog.Info("rule cache warmed", "rules", n)
	}

	verifier := auth.NewVerifier(cfg.AdminTokenHash)
	lockout := middleware.NewTokenLockout(middleware.DefaultTokenLockoutConfig())

	var pinger handler.Pinger
	if p, ok := ruleCache.(handler.Pinger); ok {
		pinger = p
	}
	health := handler.NewHealthHandler(handler.HealthOptions{
		DB:       db.DB,
		Cache:    pinger,
		QRDir:    cfg.QRDir,
		Verifier: verifier,
		Version:  versionInfo.Version,
	})

	dispatcher := middleware.NewDispatcher(middleware.DispatcherConfig{
		Matcher: matcher,
		Tracker: tracker,
		Checker: checker,
		Country: geo,
		Metrics: m,
		Logger:  logger,
	})

	apiHandler := api.NewHandler(api.Deps{
		Manager:  manager,
		Matcher:  matcher,
		Tracker:  tracker,
		Reporter: reporter,
		QR:       qr,
		Settings: prov,
		Checker:  checker,
		Logger:   logger,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(dispatcher.Handler)

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
		r.Use(middleware.NewRateLimiter(apiRatePerSecond, apiRateBurst, logger).Middleware())
		r.Use(chimw.Timeout(apiTimeout))
		r.Use(middleware.AdminAuth(verifier, lockout, logger))
		apiHandler.Routes(r)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "404 page not found", http.StatusNotFound)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env,
			"version", versionInfo.Version, "commit", versionInfo.GitCommit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
