package app

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"saarthi.opentransit.in/internal/config"
)

// newTestApplication wires a full Application against a throwaway cache
// directory. The mutate hook runs before wiring, so tests can repoint
// cfg.Geocoder.BaseURL, cfg.Overpass.Mirrors, or cfg.Router.BaseURL at
// httptest servers.
func newTestApplication(t *testing.T, mutate func(cfg *config.Config)) *Application {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Env = "testing"
	cfg.CacheDir = t.TempDir()
	// Geometry is synthesized unless a test wires its own router.
	cfg.Router.BaseURL = ""
	if mutate != nil {
		mutate(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := New(cfg, logger, &http.Client{Timeout: 5 * time.Second}, "test-version")
	t.Cleanup(app.Close)
	return app
}
