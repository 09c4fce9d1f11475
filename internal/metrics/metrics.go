package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MirrorStatus reports reachability of each Overpass mirror (0 = down, 1 = up).
	MirrorStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "saarthi_overpass_mirror_status",
			Help: "Status of the Overpass mirror (0 = not working, 1 = working)",
		},
		[]string{"mirror"},
	)

	// MirrorAvailableSlots reports the free request slots announced by the
	// mirror's status endpoint.
	MirrorAvailableSlots = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "saarthi_overpass_mirror_available_slots",
			Help: "Number of request slots the Overpass mirror reports as available",
		},
		[]string{"mirror"},
	)
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saarthi_upstream_requests_total",
		Help: "Number of requests sent to upstream services, by outcome",
	}, []string{"service", "outcome"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saarthi_upstream_request_duration_seconds",
		Help:    "Latency of upstream service requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{"service"})

	// OutgoingLatency is observed by the instrumented HTTP transport for
	// every outgoing request, regardless of which service issued it.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saarthi_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{"url", "method", "status"})
)

var (
	CacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saarthi_cache_events_total",
		Help: "Cache hits and misses, by cache name",
	}, []string{"cache", "event"})

	RoutesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saarthi_routes_generated_total",
		Help: "Number of synthesized routes returned to clients",
	})

	GeocodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saarthi_geocode_failures_total",
		Help: "Number of failed geocoding lookups, by reason",
	}, []string{"reason"})
)

var (
	SnapshotStations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_snapshot_stations",
		Help: "Number of stations held in the network snapshot",
	}, []string{"mode"})

	SnapshotAgeSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_snapshot_age_seconds",
		Help: "Seconds since the network snapshot was last updated",
	}, []string{"mode"})
)

var (
	TopologyEarliestExpirationGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_topology_days_until_earliest_expiration",
		Help: "Number of days until the earliest service expiration in the network's GTFS bundle",
	}, []string{"network"})

	TopologyLatestExpirationGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_topology_days_until_latest_expiration",
		Help: "Number of days until the latest service expiration in the network's GTFS bundle",
	}, []string{"network"})
)

var (
	CitiesConfigured = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "saarthi_cities_configured",
		Help: "Number of cities in the configuration",
	})

	CitiesCovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "saarthi_cities_covered",
		Help: "Number of configured cities with at least one station in the snapshot",
	})

	CityCoverageMatch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "saarthi_city_coverage_match",
		Help: "Whether every configured city has station coverage (1 = match, 0 = no match)",
	})

	StationsInCity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_city_stations",
		Help: "Number of snapshot stations inside the city's bounding box",
	}, []string{"city"})
)

var (
	StationClusterCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saarthi_station_cluster_count",
		Help: "Number of snapshot stations per S2 geographic cluster",
	}, []string{"mode", "cluster_id"})
)
