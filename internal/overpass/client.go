package overpass

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"saarthi.opentransit.in/internal/cache"
	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/snapshot"
	"saarthi.opentransit.in/internal/utils"
)

// Client fetches stations from the configured Overpass mirror pool. One
// mirror is picked pseudo-randomly per query to spread load; mirrors in a
// backoff window are skipped. Identical concurrent queries are collapsed
// with singleflight and results are memoized in a TTL cache keyed by a
// rounded coordinate fingerprint.
type Client struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	Config     *config.Config
	Backoff    *config.BackoffStore
	Health     *metrics.MirrorHealth
	Snapshot   *snapshot.Store

	limiter *rate.Limiter
	group   singleflight.Group
	cache   *cache.Cache[[]models.Station]
}

func NewClient(cfg *config.Config, logger *slog.Logger, httpClient *http.Client, backoff *config.BackoffStore, health *metrics.MirrorHealth, snapshotStore *snapshot.Store) *Client {
	ttl := time.Duration(cfg.Overpass.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	rpm := cfg.Overpass.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &Client{
		Logger:     logger,
		HTTPClient: httpClient,
		Config:     cfg,
		Backoff:    backoff,
		Health:     health,
		Snapshot:   snapshotStore,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 5),
		cache:      cache.New[[]models.Station](ttl),
	}
}

// Close stops the result cache's background sweeper.
func (c *Client) Close() {
	c.cache.Close()
}

// fingerprint rounds the query point to three decimals (roughly 110 m) so
// that nearby lookups share cache entries and in-flight requests.
func fingerprint(point geo.Point, radiusMeters int) string {
	return fmt.Sprintf("%.3f:%.3f:%d", point.Lat, point.Lon, radiusMeters)
}

// FetchNear returns stations within radiusMeters of the point, sorted by
// distance ascending and truncated to limit. The full result set is
// cached; the limit applies per call.
func (c *Client) FetchNear(ctx context.Context, point geo.Point, radiusMeters int, limit int) ([]models.Station, error) {
	radiusMeters = utils.ClampInt(radiusMeters, 100, 50000)
	key := fingerprint(point, radiusMeters)

	if hit, ok := c.cache.Get(key); ok {
		metrics.CacheEventsTotal.WithLabelValues("overpass", "hit").Inc()
		return truncated(hit, limit), nil
	}
	metrics.CacheEventsTotal.WithLabelValues("overpass", "miss").Inc()

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		stations, err := c.fetchStations(ctx, point, radiusMeters)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, stations)
		c.mergeSnapshot(stations)
		return stations, nil
	})
	if err != nil {
		return nil, err
	}
	return truncated(result.([]models.Station), limit), nil
}

// FetchNearOrEmpty degrades through the on-disk snapshot to an empty
// slice instead of returning an error; callers that render results prefer
// thin answers over failures.
func (c *Client) FetchNearOrEmpty(ctx context.Context, point geo.Point, radiusMeters int, limit int) []models.Station {
	stations, err := c.FetchNear(ctx, point, radiusMeters, limit)
	if err == nil {
		return stations
	}

	c.Logger.Warn("Serving stations from snapshot after Overpass failure", "error", err)
	if c.Snapshot != nil {
		if fallback := c.Snapshot.Near(point, float64(radiusMeters)/1000.0, limit); len(fallback) > 0 {
			metrics.CacheEventsTotal.WithLabelValues("snapshot", "hit").Inc()
			return fallback
		}
		metrics.CacheEventsTotal.WithLabelValues("snapshot", "miss").Inc()
	}
	return []models.Station{}
}

// Invalidate drops every cached station result.
func (c *Client) Invalidate() {
	c.cache.Clear()
}

func truncated(stations []models.Station, limit int) []models.Station {
	if limit > 0 && len(stations) > limit {
		return stations[:limit]
	}
	return stations
}

// mergeSnapshot feeds freshly fetched stations into the snapshot store so
// the mirror-outage fallback stays warm.
func (c *Client) mergeSnapshot(stations []models.Station) {
	if c.Snapshot == nil {
		return
	}
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		var byMode []models.Station
		for _, station := range stations {
			if station.Type == mode {
				byMode = append(byMode, station)
			}
		}
		if len(byMode) > 0 {
			c.Snapshot.Merge(mode, byMode)
		}
	}
}

func (c *Client) fetchStations(ctx context.Context, point geo.Point, radiusMeters int) ([]models.Station, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	mirror, err := c.pickMirror()
	if err != nil {
		return nil, err
	}

	query := buildQuery(point, radiusMeters, c.Config.Overpass.TimeoutSeconds)
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mirror, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.Config.UserAgent)

	start := time.Now()
	resp, err := config.DoWithBackoff(ctx, c.HTTPClient, req, c.Config.Overpass.MaxRetries)
	if err != nil {
		c.mirrorFailed(mirror, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("overpass mirror %s returned status %d", mirror, resp.StatusCode)
		c.mirrorFailed(mirror, err)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read Overpass response: %w", err)
		c.mirrorFailed(mirror, err)
		return nil, err
	}
	elapsed := time.Since(start)

	stations, err := parseStations(body, point, 0, c.Config)
	if err != nil {
		c.mirrorFailed(mirror, err)
		return nil, err
	}

	c.Backoff.ResetBackoff(mirror)
	if c.Health != nil {
		c.Health.MarkSuccess(mirror, elapsed)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("overpass", "success").Inc()
	metrics.UpstreamRequestDuration.WithLabelValues("overpass").Observe(elapsed.Seconds())

	return stations, nil
}

// pickMirror selects a mirror pseudo-randomly, skipping mirrors whose
// backoff retry window has not opened yet.
func (c *Client) pickMirror() (string, error) {
	mirrors := c.Config.GetMirrors()
	if len(mirrors) == 0 {
		return "", fmt.Errorf("no Overpass mirrors configured")
	}

	now := time.Now()
	eligible := make([]string, 0, len(mirrors))
	for _, mirror := range mirrors {
		if retryAt, gated := c.Backoff.NextRetryAt(mirror); gated && now.Before(retryAt) {
			continue
		}
		eligible = append(eligible, mirror)
	}
	if len(eligible) == 0 {
		return "", fmt.Errorf("all %d Overpass mirrors are backing off", len(mirrors))
	}
	return eligible[rand.IntN(len(eligible))], nil
}

func (c *Client) mirrorFailed(mirror string, err error) {
	c.Backoff.UpdateBackoff(mirror)
	if c.Health != nil {
		c.Health.MarkFailure(mirror)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("overpass", "error").Inc()
	c.Logger.Error("Overpass request failed", "mirror", mirror, "error", err)
	report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
		Tags: utils.MakeMap("mirror", mirror),
	})
}
