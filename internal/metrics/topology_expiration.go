package metrics

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// checkTopologyExpiration calculates how many days remain until the
// services in the network's cached GTFS bundle expire, and updates the
// per-network expiration gauges. The bundle at cachePath is the newest
// zip the feed downloader wrote for this network.
func checkTopologyExpiration(cachePath string, network string, currentTime time.Time) (int, int, error) {
	fileBytes, err := os.ReadFile(cachePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("network", network),
			ExtraContext: map[string]interface{}{
				"cache_path": cachePath,
			},
		})
		return 0, 0, err
	}

	staticData, err := remoteGtfs.ParseStatic(fileBytes, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("network", network),
			ExtraContext: map[string]interface{}{
				"cache_path": cachePath,
			},
		})
		return 0, 0, err
	}

	if len(staticData.Services) == 0 {
		errMsg := fmt.Errorf("no services found in GTFS bundle")
		report.ReportErrorWithSentryOptions(errMsg, report.SentryReportOptions{
			Tags: utils.MakeMap("network", network),
			ExtraContext: map[string]interface{}{
				"cache_path": cachePath,
			},
			Level: sentry.LevelWarning,
		})
		return 0, 0, errMsg
	}

	// The GTFS library does not read feed_info.txt, so the service
	// calendar end dates stand in for the feed's validity window.
	earliestEndDate := staticData.Services[0].EndDate
	latestEndDate := staticData.Services[0].EndDate
	for _, service := range staticData.Services {
		if service.EndDate.Before(earliestEndDate) {
			earliestEndDate = service.EndDate
		}
		if service.EndDate.After(latestEndDate) {
			latestEndDate = service.EndDate
		}
	}

	daysUntilEarliestExpiration := int(earliestEndDate.Sub(currentTime).Hours() / 24)
	daysUntilLatestExpiration := int(latestEndDate.Sub(currentTime).Hours() / 24)

	TopologyEarliestExpirationGauge.WithLabelValues(network).Set(float64(daysUntilEarliestExpiration))
	TopologyLatestExpirationGauge.WithLabelValues(network).Set(float64(daysUntilLatestExpiration))

	return daysUntilEarliestExpiration, daysUntilLatestExpiration, nil
}
