package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"saarthi.opentransit.in/internal/middleware"

	"github.com/julienschmidt/httprouter"
)

// Routes sets up the HTTP routing configuration for the application and returns the final http.Handler.
//
// This function initializes a new `httprouter.Router`, registers all application routes
// with their corresponding handler functions and HTTP methods, and wraps the entire router
// with the middleware chain.
//
// Registered Routes:
//   - GET /v1/healthcheck:
//     Provides a JSON-formatted snapshot of the application's current health and readiness status.
//   - GET /v1/routes:
//     The main operation. Geocodes the `from` and `to` place names and returns
//     ranked multi-leg routes between them, optionally with leg geometry.
//   - GET /v1/stations:
//     Station search passthrough around a coordinate.
//   - GET /v1/geocode:
//     Place name resolution, either first match or a candidate list.
//   - GET /v1/path:
//     Standalone leg geometry between two coordinates for a given mode.
//   - GET /metrics:
//     Exposes all Prometheus metrics collected by the application for scraping.
//     Handled by a cached Prometheus handler (`middleware.NewCachedPromHandler`), which
//     reduces collection overhead by caching exposition output for a configurable duration.
//
// Middleware:
//   - `middleware.SentryMiddleware` wraps the router to automatically capture any panics
//     or errors and report them to Sentry with contextual request data.
//   - `middleware.SecurityHeaders` sets conservative response headers on every route.
//
// Returns:
//   - An `http.Handler` instance that the server can use to handle incoming HTTP requests.
func (app *Application) Routes(ctx context.Context) http.Handler {
	// Initialize a new httprouter router instance.
	router := httprouter.New()

	// Register the relevant methods, URL patterns and handler functions for our
	// endpoints using the HandlerFunc() method.
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/routes", app.routesHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stations", app.stationsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/geocode", app.geocodeHandler)
	router.HandlerFunc(http.MethodGet, "/v1/path", app.pathHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	// Wrap router with Sentry and securityHeaders middlewares
	// Return wrapped httprouter instance.
	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
