package snapshot

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
)

func testStation(id, name string, mode models.StationType, lat, lon float64) models.Station {
	return models.Station{
		ID:       id,
		Name:     name,
		Type:     mode,
		City:     "delhi",
		Network:  "Delhi Metro",
		Location: geo.Point{Lat: lat, Lon: lon},
	}
}

func TestStoreNear(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Set(models.StationTypeMetro, []models.Station{
		testStation("osm:node/1", "Rajiv Chowk", models.StationTypeMetro, 28.6330, 77.2194),
		testStation("osm:node/2", "Mandi House", models.StationTypeMetro, 28.6259, 77.2344),
		testStation("osm:node/3", "Kashmere Gate", models.StationTypeMetro, 28.6675, 77.2282),
	}, nil)
	store.Set(models.StationTypeBus, []models.Station{
		testStation("osm:node/4", "Shivaji Stadium", models.StationTypeBus, 28.6289, 77.2135),
	}, nil)

	from := geo.Point{Lat: 28.6328, Lon: 77.2197}

	near := store.Near(from, 3, 0)
	if len(near) != 3 {
		t.Fatalf("expected 3 stations within 3 km, got %d: %v", len(near), near)
	}
	if near[0].Name != "Rajiv Chowk" {
		t.Errorf("expected nearest station first, got %s", near[0].Name)
	}
	for i := 1; i < len(near); i++ {
		if near[i].DistanceKm < near[i-1].DistanceKm {
			t.Errorf("expected ascending distances, got %v then %v", near[i-1].DistanceKm, near[i].DistanceKm)
		}
	}

	// Both modes contribute to the result.
	var sawBus bool
	for _, st := range near {
		if st.Type == models.StationTypeBus {
			sawBus = true
		}
	}
	if !sawBus {
		t.Error("expected bus station in mixed-mode result")
	}

	if limited := store.Near(from, 10, 2); len(limited) != 2 {
		t.Errorf("expected limit to truncate to 2, got %d", len(limited))
	}
}

func TestStoreMerge(t *testing.T) {
	store := NewStore(t.TempDir())
	store.Set(models.StationTypeMetro, []models.Station{
		testStation("osm:node/1", "Rajiv Chowk", models.StationTypeMetro, 28.6330, 77.2194),
	}, nil)

	added := store.Merge(models.StationTypeMetro, []models.Station{
		testStation("osm:node/1", "Rajiv Chowk", models.StationTypeMetro, 28.6330, 77.2194),
		testStation("osm:node/2", "Mandi House", models.StationTypeMetro, 28.6259, 77.2344),
	})
	if added != 1 {
		t.Errorf("expected 1 new station from merge, got %d", added)
	}

	network, ok := store.Get(models.StationTypeMetro)
	if !ok {
		t.Fatal("expected metro snapshot to exist")
	}
	if len(network.Stations) != 2 {
		t.Errorf("expected 2 stations after merge, got %d", len(network.Stations))
	}

	if added := store.Merge(models.StationTypeMetro, nil); added != 0 {
		t.Errorf("expected empty merge to be a no-op, got %d", added)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := NewStore(dir)
	store.Set(models.StationTypeMetro, []models.Station{
		testStation("osm:node/1", "Rajiv Chowk", models.StationTypeMetro, 28.6330, 77.2194),
		testStation("osm:node/2", "Mandi House", models.StationTypeMetro, 28.6259, 77.2344),
	}, []models.Line{
		{ID: "blue", Name: "Blue Line", Network: "Delhi Metro", Stations: []string{"rajiv chowk", "mandi house"}},
	})

	if err := store.Save(models.StationTypeMetro); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewStore(dir)
	if err := reloaded.Load(models.StationTypeMetro); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	network, ok := reloaded.Get(models.StationTypeMetro)
	if !ok {
		t.Fatal("expected loaded snapshot")
	}
	if len(network.Stations) != 2 {
		t.Errorf("expected 2 stations, got %d", len(network.Stations))
	}
	if len(network.Lines) != 1 || network.Lines[0].ID != "blue" {
		t.Errorf("expected line data to round-trip, got %v", network.Lines)
	}

	// LastUpdated round-trips at second precision through RFC3339.
	updated, ok := reloaded.LastUpdated(models.StationTypeMetro)
	if !ok {
		t.Fatal("expected LastUpdated after load")
	}
	if time.Since(updated) > time.Minute {
		t.Errorf("expected recent LastUpdated, got %v", updated)
	}

	// The loaded snapshot answers Near queries.
	near := reloaded.Near(geo.Point{Lat: 28.6328, Lon: 77.2197}, 2, 0)
	if len(near) == 0 || near[0].Name != "Rajiv Chowk" {
		t.Errorf("expected grid index rebuilt after load, got %v", near)
	}
}

func TestStoreLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Load(models.StationTypeMetro); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error for missing snapshot, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "snapshot_bus.json"), []byte("{ not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := store.Load(models.StationTypeBus); err == nil {
		t.Error("expected error for corrupt snapshot file")
	}

	// LoadAll must survive both cases.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store.LoadAll(logger)
}

func TestStoreInvalidate(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	store.Set(models.StationTypeMetro, []models.Station{
		testStation("osm:node/1", "Rajiv Chowk", models.StationTypeMetro, 28.6330, 77.2194),
	}, nil)
	if err := store.Save(models.StationTypeMetro); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Invalidate(models.StationTypeMetro); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, ok := store.Get(models.StationTypeMetro); ok {
		t.Error("expected snapshot to be gone from memory")
	}
	if _, err := os.Stat(filepath.Join(dir, "snapshot_metro.json")); !os.IsNotExist(err) {
		t.Error("expected snapshot file to be removed")
	}

	// Invalidating an absent mode is not an error.
	if err := store.Invalidate(models.StationTypeMetro); err != nil {
		t.Errorf("expected idempotent invalidate, got %v", err)
	}
}
