package lines

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/snapshot"
	"saarthi.opentransit.in/internal/utils"
)

// LinesService holds dependencies and provides topology operations.
type LinesService struct {
	Store         *Store
	SnapshotStore *snapshot.Store
	Logger        *slog.Logger
	Client        *http.Client
	CacheDir      string
}

func NewLinesService(store *Store, snapshotStore *snapshot.Store, logger *slog.Logger, client *http.Client, cacheDir string) *LinesService {
	return &LinesService{
		Store:         store,
		SnapshotStore: snapshotStore,
		Logger:        logger,
		Client:        client,
		CacheDir:      cacheDir,
	}
}

// DownloadFeeds loads every configured GTFS feed once, blocking until
// all feeds have been attempted.
func (ls *LinesService) DownloadFeeds(ctx context.Context, feeds []config.TopologyFeed, maxRetries int) {
	downloadFeeds(ctx, feeds, ls.Logger, ls.Client, ls.CacheDir, maxRetries, ls.Store, ls.SnapshotStore)
}

// RefreshFeeds blocks, re-downloading the feeds at the given interval
// until the context is canceled. Run it on its own goroutine.
func (ls *LinesService) RefreshFeeds(ctx context.Context, feeds []config.TopologyFeed, maxRetries int, interval time.Duration) {
	refreshFeeds(ctx, feeds, ls.Logger, ls.Client, ls.CacheDir, maxRetries, interval, ls.Store, ls.SnapshotStore)
}

// HydrateFromSnapshot seeds the store from persisted snapshot line data
// so the planner has a topology before the first feed download lands,
// and still has one when every feed is unreachable.
func (ls *LinesService) HydrateFromSnapshot(feeds []config.TopologyFeed) {
	if ls.SnapshotStore == nil {
		return
	}
	for _, feed := range feeds {
		if ls.Store.Topology().NetworkCovered(feed.Network) {
			continue
		}
		mode := models.StationType(feed.Mode)
		network, ok := ls.SnapshotStore.Get(mode)
		if !ok {
			continue
		}
		lines := filterNetwork(network.Lines, feed.Network)
		if len(lines) == 0 {
			continue
		}
		ls.Store.ReplaceNetwork(feed.Network, mode, lines)
		ls.Logger.Info("Hydrated line topology from snapshot", "network", feed.Network, "lines", len(lines))
	}
}

func filterNetwork(lines []models.Line, network string) []models.Line {
	var matched []models.Line
	for _, line := range lines {
		if utils.NormalizeName(line.Network) == utils.NormalizeName(network) {
			matched = append(matched, line)
		}
	}
	return matched
}
