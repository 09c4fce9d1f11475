package lines

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/snapshot"
	"saarthi.opentransit.in/internal/utils"
)

// downloadFeeds fetches and processes every configured GTFS feed.
//
// For each feed, it:
//  1. Downloads the static GTFS bundle with backoff, caching the zip
//     under the cache directory (hash-named, timestamped).
//  2. Falls back to the most recent cached zip when the download fails.
//  3. Parses the bundle and flattens it into line membership data.
//  4. Replaces that network's lines in the Store and pushes the mode's
//     merged lines into the snapshot store.
//
// Failures are handled and reported per feed; one bad feed never stops
// the others.
func downloadFeeds(ctx context.Context, feeds []config.TopologyFeed, logger *slog.Logger, client *http.Client, cacheDir string, maxRetries int, store *Store, snapshotStore *snapshot.Store) {
	var wg sync.WaitGroup
	for _, feed := range feeds {
		f := feed
		wg.Add(1)
		go func() {
			defer wg.Done()

			static, err := loadFeedBundle(ctx, f, logger, client, cacheDir, maxRetries)
			if err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags: utils.MakeMap("network", f.Network),
					ExtraContext: map[string]interface{}{
						"gtfs_url": f.GtfsURL,
					},
					Level: sentry.LevelError,
				})
				logger.Error("Failed to load GTFS feed", "network", f.Network, "error", err)
				return
			}

			mode := models.StationType(f.Mode)
			lines := buildLines(f.Network, mode, static)
			if len(lines) == 0 {
				logger.Warn("GTFS feed produced no lines", "network", f.Network, "mode", f.Mode)
				return
			}

			store.ReplaceNetwork(f.Network, mode, lines)
			if snapshotStore != nil {
				snapshotStore.SetLines(mode, store.LinesForMode(mode))
			}
			logger.Info("Loaded line topology", "network", f.Network, "mode", f.Mode, "lines", len(lines))
		}()
	}
	wg.Wait()
}

// refreshFeeds periodically re-downloads the configured GTFS feeds so
// the topology follows published schedule changes. It stops when the
// context is canceled.
func refreshFeeds(ctx context.Context, feeds []config.TopologyFeed, logger *slog.Logger, client *http.Client, cacheDir string, maxRetries int, interval time.Duration, store *Store, snapshotStore *snapshot.Store) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping topology refresh routine")
			return
		case <-ticker.C:
			logger.Info("Refreshing line topology feeds")
			downloadFeeds(ctx, feeds, logger, client, cacheDir, maxRetries, store, snapshotStore)
		}
	}
}

// loadFeedBundle returns the parsed GTFS bundle for a feed, preferring a
// fresh download and degrading to the newest cached zip.
func loadFeedBundle(ctx context.Context, feed config.TopologyFeed, logger *slog.Logger, client *http.Client, cacheDir string, maxRetries int) (*remoteGtfs.Static, error) {
	data, err := downloadFeedBundle(ctx, feed, client, cacheDir, maxRetries)
	if err != nil {
		cached, cacheErr := utils.GetLastCachedFile(cacheDir, BundleCachePrefix(feed))
		if cacheErr != nil {
			return nil, fmt.Errorf("download failed (%v) and no cached bundle: %w", err, cacheErr)
		}
		logger.Warn("Using cached GTFS bundle after download failure",
			"network", feed.Network, "path", cached, "error", err)
		data, err = os.ReadFile(cached)
		if err != nil {
			return nil, fmt.Errorf("failed to read cached bundle %s: %w", cached, err)
		}
	}

	static, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GTFS static data for %s: %w", feed.Network, err)
	}
	return static, nil
}

// downloadFeedBundle performs the HTTP fetch and writes the zip into the
// cache directory for later reuse.
func downloadFeedBundle(ctx context.Context, feed config.TopologyFeed, client *http.Client, cacheDir string, maxRetries int) ([]byte, error) {
	req, err := http.NewRequest("GET", feed.GtfsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", feed.GtfsURL, err)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", feed.GtfsURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d when downloading GTFS bundle from %s", resp.StatusCode, feed.GtfsURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS bundle response body from %s: %w", feed.GtfsURL, err)
	}

	cachePath := filepath.Join(cacheDir, BundleCachePrefix(feed)+"_"+strconv.FormatInt(time.Now().Unix(), 10)+".zip")
	if err := os.WriteFile(cachePath, data, 0o600); err != nil {
		// The bundle itself is fine; losing the cache copy is not fatal.
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("network", feed.Network),
			ExtraContext: map[string]interface{}{
				"path": cachePath,
			},
			Level: sentry.LevelWarning,
		})
	}

	return data, nil
}

// BundleCachePrefix names cached zips by mode plus a short URL hash so
// feeds never collide and a URL change starts a fresh cache lineage.
func BundleCachePrefix(feed config.TopologyFeed) string {
	sum := sha256.Sum256([]byte(feed.GtfsURL))
	return fmt.Sprintf("topology_%s_%x", feed.Mode, sum[:6])
}
