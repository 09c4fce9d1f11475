package metrics

import (
	"fmt"

	"github.com/golang/geo/s2"
	"saarthi.opentransit.in/internal/models"
)

const s2Level = 10 // ~600m spatial resolution

// s2ClusterID generates a stable S2-based cluster ID for a lat/lon.
func s2ClusterID(lat, lon float64, level int) string {
	ll := s2.LatLngFromDegrees(lat, lon)
	cellID := s2.CellIDFromLatLng(ll).Parent(level)
	return fmt.Sprintf("s2_%d", uint64(cellID))
}

// reportStationClusters groups the snapshot stations of one mode into S2
// geographic clusters and reports the per-cluster counts. Dense clusters
// flag areas where the provider returns duplicate or fragmented station
// nodes.
func reportStationClusters(mode models.StationType, stations []models.Station) {
	clusterCount := make(map[string]int)

	for _, station := range stations {
		id := s2ClusterID(station.Location.Lat, station.Location.Lon, s2Level)
		clusterCount[id]++
	}

	for id, count := range clusterCount {
		StationClusterCount.WithLabelValues(string(mode), id).Set(float64(count))
	}
}
