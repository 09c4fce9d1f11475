package app

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// StartMonitoring launches the background observation loop: mirror pings,
// topology feed expiration, city coverage, station cluster gauges, snapshot
// freshness, and snapshot persistence. It also starts the mirror health
// janitor. Both goroutines stop when the context is canceled.
func (app *Application) StartMonitoring(ctx context.Context, interval time.Duration) {
	go app.MirrorHealth.ClearRoutine(ctx, time.Hour, 24*time.Hour)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				app.Logger.Info("Stopping monitoring routine")
				return
			case <-ticker.C:
				app.collectOnce()
			}
		}
	}()
}

// collectOnce runs one sweep of every periodic check. Failures in one check
// never block the others; each is logged and reported on its own.
func (app *Application) collectOnce() {
	cfg := app.ConfigService.Config

	app.MetricsService.PingMirrors(cfg.GetMirrors())

	for _, feed := range cfg.Topology.Feeds {
		_, _, err := app.MetricsService.CheckTopologyExpiration(time.Now(), feed)
		if err != nil {
			app.Logger.Error("Failed to check topology feed expiration", "network", feed.Network, "error", err)
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Tags:  utils.MakeMap("network", feed.Network),
				Level: sentry.LevelError,
			})
		}
	}

	if _, err := app.MetricsService.CheckCityCoverage(cfg.GetCities()); err != nil {
		app.Logger.Error("Failed to check city coverage", "error", err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelWarning,
		})
	}

	app.MetricsService.ReportStationClusters()
	app.MetricsService.ReportSnapshotFreshness()

	app.saveSnapshots()
}

// saveSnapshots persists each populated network snapshot to the cache
// directory so a restart can serve stations through a mirror outage.
func (app *Application) saveSnapshots() {
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		if _, ok := app.SnapshotStore.Get(mode); !ok {
			continue
		}
		if err := app.SnapshotStore.Save(mode); err != nil {
			app.Logger.Error("Failed to persist network snapshot", "mode", mode, "error", err)
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Tags:  utils.MakeMap("mode", string(mode)),
				Level: sentry.LevelWarning,
			})
		}
	}
}
