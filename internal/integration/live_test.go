//go:build integration

package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/geocode"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/overpass"
	"saarthi.opentransit.in/internal/planner"
	"saarthi.opentransit.in/internal/snapshot"
)

// TestLiveGeocode resolves a well-known landmark against the live Nominatim
// endpoint and checks the coordinate lands in Delhi.
func TestLiveGeocode(t *testing.T) {
	cfg := liveConfig(t)

	client := geocode.NewClient(cfg.Geocoder, cfg.UserAgent, quietLogger(), liveClient())
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	location := client.Resolve(ctx, "India Gate")
	if location == nil {
		t.Fatal("expected India Gate to resolve")
	}
	if !strings.Contains(strings.ToLower(location.Name), "india gate") {
		t.Errorf("unexpected display name %q", location.Name)
	}
	if city := cfg.CityFor(location.Location.Lat, location.Location.Lon); city != "delhi" {
		t.Errorf("expected a Delhi coordinate, got %v attributed to %q", location.Location, city)
	}
}

// TestLiveStationFetch queries the live mirror pool around Connaught Place,
// the busiest interchange in Delhi, and expects at least one metro station.
func TestLiveStationFetch(t *testing.T) {
	cfg := liveConfig(t)

	snapshotStore := snapshot.NewStore(cfg.CacheDir)
	client := overpass.NewClient(cfg, quietLogger(), liveClient(),
		config.NewBackoffStore(), metrics.NewMirrorHealth(), snapshotStore)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	stations, err := client.FetchNear(ctx, geo.Point{Lat: 28.6315, Lon: 77.2167}, 2000, 20)
	if err != nil {
		t.Fatalf("station fetch failed: %v", err)
	}
	if len(stations) == 0 {
		t.Fatal("expected stations around Connaught Place")
	}

	foundMetro := false
	for _, station := range stations {
		if station.Type == models.StationTypeMetro {
			foundMetro = true
		}
		if station.DistanceKm > 2.5 {
			t.Errorf("station %s is %.1f km away, outside the requested radius", station.Name, station.DistanceKm)
		}
	}
	if !foundMetro {
		t.Error("expected at least one metro station near Connaught Place")
	}
}

// TestLiveRouteGeneration runs the full pipeline against the live
// providers: geocode both landmarks, fetch candidates, generate routes.
func TestLiveRouteGeneration(t *testing.T) {
	cfg := liveConfig(t)
	logger := quietLogger()
	httpClient := liveClient()

	geocoder := geocode.NewClient(cfg.Geocoder, cfg.UserAgent, logger, httpClient)
	defer geocoder.Close()

	snapshotStore := snapshot.NewStore(cfg.CacheDir)
	stations := overpass.NewClient(cfg, logger, httpClient,
		config.NewBackoffStore(), metrics.NewMirrorHealth(), snapshotStore)
	defer stations.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	origin := geocoder.Resolve(ctx, "India Gate")
	destination := geocoder.Resolve(ctx, "Red Fort")
	if origin == nil || destination == nil {
		t.Fatal("expected both landmarks to resolve")
	}

	p := planner.NewPlanner(cfg, logger, stations, nil, snapshotStore)
	routes := p.Generate(ctx, *origin, *destination)
	if len(routes) == 0 {
		t.Fatal("expected at least one route from India Gate to Red Fort")
	}

	for _, route := range routes {
		if len(route.Steps) < 3 {
			t.Errorf("route %s has %d steps, want at least 3", route.ID, len(route.Steps))
		}
		if route.Steps[0].Type != models.StepWalk ||
			route.Steps[len(route.Steps)-1].Type != models.StepWalk {
			t.Errorf("route %s does not start and end with a walk", route.ID)
		}
	}
}
