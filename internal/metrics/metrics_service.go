package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/lines"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/snapshot"
	"saarthi.opentransit.in/internal/utils"
)

type MetricsService struct {
	SnapshotStore *snapshot.Store
	LinesStore    *lines.Store
	MirrorHealth  *MirrorHealth
	Logger        *slog.Logger
	Client        *http.Client
	CacheDir      string
	UserAgent     string
}

func NewMetricsService(snapshotStore *snapshot.Store, linesStore *lines.Store, mirrorHealth *MirrorHealth, logger *slog.Logger, client *http.Client, cacheDir string, userAgent string) *MetricsService {
	return &MetricsService{
		SnapshotStore: snapshotStore,
		LinesStore:    linesStore,
		MirrorHealth:  mirrorHealth,
		Logger:        logger,
		Client:        client,
		CacheDir:      cacheDir,
		UserAgent:     userAgent,
	}
}

// PingMirrors probes each Overpass mirror's status endpoint and updates
// the reachability and slot gauges.
func (ms *MetricsService) PingMirrors(mirrors []string) {
	for _, mirror := range mirrors {
		mirrorPing(ms.Client, mirror, ms.UserAgent)
	}
}

// CheckTopologyExpiration reads the newest cached GTFS bundle for the
// feed and reports days until its earliest and latest service expiration.
func (ms *MetricsService) CheckTopologyExpiration(currentTime time.Time, feed config.TopologyFeed) (int, int, error) {
	cachePath, err := utils.GetLastCachedFile(ms.CacheDir, lines.BundleCachePrefix(feed))
	if err != nil {
		return 0, 0, err
	}
	return checkTopologyExpiration(cachePath, feed.Network, currentTime)
}

// CheckCityCoverage updates the per-city station counts and the overall
// coverage match gauge from the current snapshot contents.
func (ms *MetricsService) CheckCityCoverage(cities []config.City) (int, error) {
	return checkCityCoverage(ms.SnapshotStore, cities)
}

// ReportStationClusters recomputes the S2 cluster gauge for every mode
// present in the snapshot.
func (ms *MetricsService) ReportStationClusters() {
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		network, ok := ms.SnapshotStore.Get(mode)
		if !ok {
			continue
		}
		reportStationClusters(mode, network.Stations)
	}
}

// ReportSnapshotFreshness updates the station count and age gauges for
// every mode present in the snapshot.
func (ms *MetricsService) ReportSnapshotFreshness() {
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		network, ok := ms.SnapshotStore.Get(mode)
		if !ok {
			continue
		}
		SnapshotStations.WithLabelValues(string(mode)).Set(float64(len(network.Stations)))
		SnapshotAgeSeconds.WithLabelValues(string(mode)).Set(time.Since(network.LastUpdated.Time()).Seconds())
	}
}
