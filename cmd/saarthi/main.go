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
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"saarthi.opentransit.in/internal/app"
	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// version is reported by the healthcheck endpoint and attached to every
// Sentry event.
const version = "1.0.0"

func main() {
	var (
		port       = flag.Int("port", 0, "API server port (overrides the config)")
		env        = flag.String("env", "", "Environment (development|staging|production)")
		configFile = flag.String("config-file", "", "Path to a local YAML configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote YAML configuration file")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env when present; container environments inject variables
	// directly instead.
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using the process environment")
	}

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	report.SetupSentry(version)
	defer report.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient()

	var (
		cfg *config.Config
		err error
	)
	switch {
	case *configFile != "":
		cfg, err = config.LoadConfigFromFile(*configFile)
	case *configURL != "":
		cfg, err = config.LoadConfigFromURL(ctx, client, *configURL, configAuthUser, configAuthPass, 2)
	default:
		// The built-in defaults are a complete configuration.
		cfg = config.DefaultConfig()
	}
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *env != "" {
		cfg.Env = *env
	}

	report.ConfigureScope(cfg.Env, version)

	if err := utils.CreateCacheDirectory(cfg.CacheDir, logger); err != nil {
		logger.Error("Failed to create cache directory", "error", err)
		os.Exit(1)
	}

	application := app.New(cfg, logger, client, version)
	defer application.Close()

	// Last run's station snapshot carries the mirror-outage fallback and
	// seeds the line topology before the first feed download lands.
	application.SnapshotStore.LoadAll(logger)

	feeds := cfg.Topology.Feeds
	application.LinesService.HydrateFromSnapshot(feeds)
	if len(feeds) > 0 {
		application.LinesService.DownloadFeeds(ctx, feeds, cfg.Overpass.MaxRetries)

		refresh := time.Duration(cfg.Topology.RefreshHours) * time.Hour
		if refresh <= 0 {
			refresh = 24 * time.Hour
		}
		go application.LinesService.RefreshFeeds(ctx, feeds, cfg.Overpass.MaxRetries, refresh)
	}

	application.StartMonitoring(ctx, 30*time.Second)

	// If a remote URL is specified, refresh the configuration every minute
	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute, 2)
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     application.Routes(ctx),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// Route generation with geometry fans out to several upstreams, so
		// the write window is generous.
		WriteTimeout: 60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownErr := make(chan error)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error(err.Error())
		os.Exit(1)
	}

	if err := <-shutdownErr; err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped server")
}
