// Package geocode resolves free-text place names to coordinates through a
// Nominatim-compatible search service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"saarthi.opentransit.in/internal/cache"
	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// nominatimPlace is one element of the search response. Latitude and
// longitude arrive as strings; elements that fail to parse are skipped.
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Client queries a Nominatim-compatible search endpoint. Resolved places
// are memoized in a TTL cache owned by the client, keyed by the
// normalized query.
type Client struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	Limit        int
	Logger       *slog.Logger
	HTTPClient   *http.Client

	cache *cache.Cache[models.NamedLocation]
}

func NewClient(cfg config.GeocoderConfig, userAgent string, logger *slog.Logger, httpClient *http.Client) *Client {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		BaseURL:      cfg.BaseURL,
		UserAgent:    userAgent,
		CountryCodes: cfg.CountryCodes,
		Limit:        cfg.Limit,
		Logger:       logger,
		HTTPClient:   httpClient,
		cache:        cache.New[models.NamedLocation](ttl),
	}
}

// Close stops the suggestion cache's background sweeper.
func (c *Client) Close() {
	c.cache.Close()
}

// Resolve geocodes a place name to its best match. A miss and a transport
// failure both yield nil, never an error: callers degrade to an empty
// result instead of surfacing upstream trouble to the user.
func (c *Client) Resolve(ctx context.Context, name string) *models.NamedLocation {
	key := utils.NormalizeName(name)
	if key == "" {
		return nil
	}

	if hit, ok := c.cache.Get(key); ok {
		metrics.CacheEventsTotal.WithLabelValues("geocode", "hit").Inc()
		return &hit
	}
	metrics.CacheEventsTotal.WithLabelValues("geocode", "miss").Inc()

	limit := c.Limit
	if limit <= 0 {
		limit = 1
	}

	places, err := c.search(ctx, name, limit)
	if err != nil {
		c.Logger.Error("Failed to geocode place name", "query", name, "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("query", key),
		})
		metrics.GeocodeFailuresTotal.WithLabelValues("transport").Inc()
		return nil
	}

	if len(places) == 0 {
		c.Logger.Warn("No geocoding match", "query", name)
		report.ReportErrorWithSentryOptions(fmt.Errorf("no geocoding match for %q", name), report.SentryReportOptions{
			Tags:  utils.MakeMap("query", key),
			Level: sentry.LevelWarning,
		})
		metrics.GeocodeFailuresTotal.WithLabelValues("no_match").Inc()
		return nil
	}

	best := places[0]
	c.cache.Set(key, best)
	return &best
}

// Search returns up to limit raw candidates for the query. Unlike Resolve
// it surfaces transport failures to the caller, which serves the
// suggestion endpoint's error handling.
func (c *Client) Search(ctx context.Context, name string, limit int) ([]models.NamedLocation, error) {
	return c.search(ctx, name, utils.ClampInt(limit, 1, 50))
}

func (c *Client) search(ctx context.Context, name string, limit int) ([]models.NamedLocation, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	if c.CountryCodes != "" {
		params.Set("countrycodes", c.CountryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestDuration.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequestsTotal.WithLabelValues("nominatim", "error").Inc()
		return nil, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("nominatim", "success").Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocoding response: %w", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocoding response: %w", err)
	}

	locations := make([]models.NamedLocation, 0, len(places))
	for _, place := range places {
		lat, latErr := strconv.ParseFloat(place.Lat, 64)
		lon, lonErr := strconv.ParseFloat(place.Lon, 64)
		if latErr != nil || lonErr != nil || !geo.IsValidLatLon(lat, lon) {
			// A malformed element is skipped; the batch survives.
			continue
		}
		locations = append(locations, models.NamedLocation{
			Name:     place.DisplayName,
			Location: geo.Point{Lat: lat, Lon: lon},
		})
	}
	return locations, nil
}
