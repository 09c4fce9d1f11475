package shape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/models"
)

// ShapeService answers leg geometry requests. Walking and bus legs first
// try the configured OSRM-compatible router; metro legs and any router
// failure fall through to the synthesizer. An empty router base URL
// disables profile routing entirely.
type ShapeService struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
}

func NewShapeService(cfg config.RouterConfig, userAgent string, logger *slog.Logger, client *http.Client) *ShapeService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShapeService{
		Logger:     logger,
		HTTPClient: client,
		BaseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		UserAgent:  userAgent,
		Timeout:    timeout,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// Geometry returns a polyline for one leg with the exact endpoints at
// both ends. It never fails; the synthesizer is the floor.
func (s *ShapeService) Geometry(ctx context.Context, from, to geo.Point, mode models.StepType) []geo.Point {
	if mode != models.StepMetro && s.BaseURL != "" {
		points, err := s.route(ctx, from, to, mode)
		if err == nil {
			return points
		}
		s.Logger.Warn("Falling back to synthesized geometry", "mode", mode, "error", err)
	}
	return Synthesize(from, to, mode, nil)
}

// profileFor maps a leg mode to the OSRM routing profile.
func profileFor(mode models.StepType) string {
	if mode == models.StepBus {
		return "driving"
	}
	return "foot"
}

func (s *ShapeService) route(ctx context.Context, from, to geo.Point, mode models.StepType) ([]geo.Point, error) {
	requestURL := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=polyline",
		s.BaseURL, profileFor(mode), from.Lon, from.Lat, to.Lon, to.Lat)

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create router request: %w", err)
	}
	req.Header.Set("User-Agent", s.UserAgent)

	start := time.Now()
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("router request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("router returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("failed to read router response: %w", err)
	}

	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("failed to unmarshal router response: %w", err)
	}
	if parsed.Code != "Ok" || len(parsed.Routes) == 0 {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("router answered code %q with %d routes", parsed.Code, len(parsed.Routes))
	}

	points := decodePolyline(parsed.Routes[0].Geometry)
	if len(points) < 2 {
		metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "error").Inc()
		return nil, fmt.Errorf("router geometry decoded to %d points", len(points))
	}

	metrics.UpstreamRequestsTotal.WithLabelValues("osrm", "success").Inc()
	metrics.UpstreamRequestDuration.WithLabelValues("osrm").Observe(time.Since(start).Seconds())

	// The router snaps to its road graph; pin the leg's own endpoints.
	points[0] = from
	points[len(points)-1] = to
	return points, nil
}
