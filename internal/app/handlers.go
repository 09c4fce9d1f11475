package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/utils"
)

// HealthStatus defines the structure of the JSON response returned by the
// application's health check endpoint (/v1/healthcheck).
//
// It provides metadata about the application's current operational status,
// including availability, deployment context, versioning, and runtime readiness.
// This structure is used to inform load balancers, orchestration tools,
// monitoring systems, and operators about the application's health and deployability.
//
// Fields:
//   - Status: A high-level indicator of service availability (e.g., "available").
//   - Environment: The current environment in which the app is running (e.g., "development", "staging", "production").
//   - Version: The application version string, useful for deployment tracking.
//   - Mirrors: The number of Overpass mirrors currently configured.
//   - Cities: The number of cities in the configured bounding box table.
//   - Ready: A boolean flag indicating whether the application is ready to serve traffic.
//     The application is considered "ready" if at least one mirror is configured.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Mirrors     int    `json:"mirrors"`
	Cities      int    `json:"cities"`
	Ready       bool   `json:"ready"`
}

// routesResponse is the envelope returned by /v1/routes: both resolved
// endpoints plus the ranked routes between them.
type routesResponse struct {
	From   models.NamedLocation `json:"from"`
	To     models.NamedLocation `json:"to"`
	Routes []models.Route       `json:"routes"`
}

// writeJSON marshals the payload with a Content-Type header and the given
// status code. Encoding failures at this point cannot be surfaced to the
// client anymore, so they are only logged.
func (app *Application) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		app.Logger.Error("Failed to encode response", "error", err)
	}
}

func (app *Application) errorResponse(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, map[string]string{"error": message})
}

func (app *Application) serverErrorResponse(w http.ResponseWriter) {
	app.errorResponse(w, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request")
}

// healthcheckHandler responds with a JSON representation of the application's health status.
//
// The response includes the application's availability status, environment, version,
// number of configured Overpass mirrors and cities, and readiness (true if at
// least one mirror is configured). If no mirrors are configured (i.e., the
// application cannot answer station queries), the handler responds with HTTP
// 500 Internal Server Error; otherwise, it responds with HTTP 200 OK.
func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	numMirrors := len(app.ConfigService.Config.GetMirrors())
	numCities := len(app.ConfigService.Config.GetCities())

	ready := numMirrors > 0 // Consider ready if at least one mirror is configured

	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		Mirrors:     numMirrors,
		Cities:      numCities,
		Ready:       ready,
	}

	code := http.StatusOK
	if !ready {
		code = http.StatusInternalServerError
	}
	app.writeJSON(w, code, status)
}

// routesHandler is the main operation: geocode both place names, generate
// ranked routes between them, and optionally attach display geometry to
// every leg.
//
// A geocoding miss on either name yields 404. Zero viable routes is a normal
// outcome and yields 200 with an empty routes array.
func (app *Application) routesHandler(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		app.errorResponse(w, http.StatusBadRequest, "both from and to are required")
		return
	}

	origin := app.Geocoder.Resolve(r.Context(), from)
	if origin == nil {
		app.errorResponse(w, http.StatusNotFound, fmt.Sprintf("could not locate %q", from))
		return
	}
	destination := app.Geocoder.Resolve(r.Context(), to)
	if destination == nil {
		app.errorResponse(w, http.StatusNotFound, fmt.Sprintf("could not locate %q", to))
		return
	}

	routes := app.Planner.Generate(r.Context(), *origin, *destination)

	if r.URL.Query().Get("geometry") == "1" {
		app.attachGeometry(r.Context(), *origin, routes)
	}

	app.writeJSON(w, http.StatusOK, routesResponse{
		From:   *origin,
		To:     *destination,
		Routes: routes,
	})
}

// stationsHandler is a station search passthrough: it returns the stations
// within a radius of the given coordinate, nearest first.
func (app *Application) stationsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(query.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		app.errorResponse(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	if !geo.IsValidLatLon(lat, lon) {
		app.errorResponse(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}

	radius := 2000
	if raw := query.Get("radius"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			app.errorResponse(w, http.StatusBadRequest, "radius must be an integer number of meters")
			return
		}
		radius = utils.ClampInt(parsed, 100, 50000)
	}

	limit := 10
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			app.errorResponse(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = utils.ClampInt(parsed, 1, 50)
	}

	stations := app.Stations.FetchNearOrEmpty(r.Context(), geo.Point{Lat: lat, Lon: lon}, radius, limit)

	app.writeJSON(w, http.StatusOK, map[string]any{
		"stations": stations,
		"count":    len(stations),
	})
}

// geocodeHandler resolves a free-text place name. Without a limit (or with
// limit=1) it answers with the single best match through the suggestion
// cache; with a larger limit it returns the raw candidate list.
func (app *Application) geocodeHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		app.errorResponse(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			app.errorResponse(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = utils.ClampInt(parsed, 1, 50)
	}

	if limit <= 1 {
		location := app.Geocoder.Resolve(r.Context(), q)
		if location == nil {
			app.errorResponse(w, http.StatusNotFound, fmt.Sprintf("no match for %q", q))
			return
		}
		app.writeJSON(w, http.StatusOK, map[string]any{
			"query":  q,
			"result": location,
		})
		return
	}

	results, err := app.Geocoder.Search(r.Context(), q, limit)
	if err != nil {
		app.Logger.Error("Geocode search failed", "query", q, "error", err)
		app.serverErrorResponse(w)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

// pathHandler returns display geometry for a single leg between two
// coordinates, using the routing profile when one is configured and the
// synthesized shape otherwise.
func (app *Application) pathHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	fromLat, err1 := strconv.ParseFloat(query.Get("fromLat"), 64)
	fromLon, err2 := strconv.ParseFloat(query.Get("fromLon"), 64)
	toLat, err3 := strconv.ParseFloat(query.Get("toLat"), 64)
	toLon, err4 := strconv.ParseFloat(query.Get("toLon"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		app.errorResponse(w, http.StatusBadRequest, "fromLat, fromLon, toLat and toLon are required")
		return
	}
	if !geo.IsValidLatLon(fromLat, fromLon) || !geo.IsValidLatLon(toLat, toLon) {
		app.errorResponse(w, http.StatusBadRequest, "coordinates must be valid lat/lon pairs")
		return
	}

	mode := models.StepType(query.Get("mode"))
	if mode == "" {
		mode = models.StepWalk
	}
	switch mode {
	case models.StepWalk, models.StepBus, models.StepMetro:
	default:
		app.errorResponse(w, http.StatusBadRequest, "mode must be one of walk, bus or metro")
		return
	}

	points := app.Shapes.Geometry(r.Context(),
		geo.Point{Lat: fromLat, Lon: fromLon},
		geo.Point{Lat: toLat, Lon: toLon},
		mode)

	app.writeJSON(w, http.StatusOK, map[string]any{
		"mode":     mode,
		"geometry": points,
	})
}

// attachGeometry walks each route's steps in order, threading the previous
// endpoint through so every leg gets a shape from its start to its end. A
// step's Location field is its endpoint; the chain starts at the resolved
// origin.
func (app *Application) attachGeometry(ctx context.Context, origin models.NamedLocation, routes []models.Route) {
	for i := range routes {
		previous := origin.Location
		for j := range routes[i].Steps {
			step := &routes[i].Steps[j]
			next := previous
			if step.Location != nil {
				next = *step.Location
			}
			step.Geometry = app.Shapes.Geometry(ctx, previous, next, step.Type)
			previous = next
		}
	}
}
