package metrics

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/snapshot"
)

// checkCityCoverage counts the snapshot stations falling inside each
// configured city's bounding box and updates the coverage gauges. A city
// is covered when at least one station of any mode lies inside its box.
func checkCityCoverage(snapshotStore *snapshot.Store, cities []config.City) (int, error) {
	CitiesConfigured.Set(float64(len(cities)))

	if len(cities) == 0 {
		err := fmt.Errorf("no cities configured for coverage check")
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelWarning,
		})
		CitiesCovered.Set(0)
		CityCoverageMatch.Set(0)
		return 0, err
	}

	var stations []models.Station
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		if network, ok := snapshotStore.Get(mode); ok {
			stations = append(stations, network.Stations...)
		}
	}

	covered := 0
	for _, city := range cities {
		count := 0
		for _, station := range stations {
			if city.Bounds.Contains(station.Location.Lat, station.Location.Lon) {
				count++
			}
		}
		StationsInCity.WithLabelValues(city.Name).Set(float64(count))
		if count > 0 {
			covered++
		}
	}

	CitiesCovered.Set(float64(covered))

	matchValue := 0
	if covered == len(cities) {
		matchValue = 1
	}
	CityCoverageMatch.Set(float64(matchValue))

	return covered, nil
}
