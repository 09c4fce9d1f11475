package app

import (
	"log/slog"
	"net/http"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geocode"
	"saarthi.opentransit.in/internal/lines"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/overpass"
	"saarthi.opentransit.in/internal/planner"
	"saarthi.opentransit.in/internal/shape"
	"saarthi.opentransit.in/internal/snapshot"
)

// Application represents the main application structure.
// It holds references to the configuration service, the upstream clients
// (geocoder, station source, leg router), the route planner, the metrics
// service, the shared stores, the logger, and the application version.
// This structure is used to wire all dependencies together and provide a
// clean API for the application.
type Application struct {
	ConfigService  *config.ConfigService
	Geocoder       *geocode.Client
	Stations       *overpass.Client
	Planner        *planner.Planner
	Shapes         *shape.ShapeService
	LinesService   *lines.LinesService
	MetricsService *metrics.MetricsService
	SnapshotStore  *snapshot.Store
	LinesStore     *lines.Store
	MirrorHealth   *metrics.MirrorHealth
	Backoff        *config.BackoffStore
	Logger         *slog.Logger
	Version        string
}

// New creates and wires all dependencies for the Application.
// Accepts config, logger, client, and version as arguments. The stores are
// created first because the clients and services share them.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) *Application {

	snapshotStore := snapshot.NewStore(cfg.CacheDir)
	linesStore := lines.NewStore()
	mirrorHealth := metrics.NewMirrorHealth()
	backoff := config.NewBackoffStore()

	configService := config.NewConfigService(logger, client, cfg)
	geocoder := geocode.NewClient(cfg.Geocoder, cfg.UserAgent, logger, client)
	stations := overpass.NewClient(cfg, logger, client, backoff, mirrorHealth, snapshotStore)
	shapes := shape.NewShapeService(cfg.Router, cfg.UserAgent, logger, client)
	linesService := lines.NewLinesService(linesStore, snapshotStore, logger, client, cfg.CacheDir)
	metricsService := metrics.NewMetricsService(snapshotStore, linesStore, mirrorHealth, logger, client, cfg.CacheDir, cfg.UserAgent)
	routePlanner := planner.NewPlanner(cfg, logger, stations, linesStore, snapshotStore)

	return &Application{
		ConfigService:  configService,
		Geocoder:       geocoder,
		Stations:       stations,
		Planner:        routePlanner,
		Shapes:         shapes,
		LinesService:   linesService,
		MetricsService: metricsService,
		SnapshotStore:  snapshotStore,
		LinesStore:     linesStore,
		MirrorHealth:   mirrorHealth,
		Backoff:        backoff,
		Logger:         logger,
		Version:        version,
	}
}

// Close releases the background resources held by the clients: the TTL
// cache sweepers of the geocoder and the station source.
func (app *Application) Close() {
	app.Geocoder.Close()
	app.Stations.Close()
}
