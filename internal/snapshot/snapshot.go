package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/report"
	"saarthi.opentransit.in/internal/utils"
)

// Network is the persisted form of everything known about one transit
// mode: the stations, the line memberships, and when the data was
// captured. One JSON file per mode lives under the cache directory.
type Network struct {
	Stations    []models.Station `json:"stations"`
	Lines       []models.Line    `json:"lines"`
	LastUpdated utils.CustomTime `json:"lastUpdated"`
}

// Store is a thread-safe in-memory view of the network snapshots,
// indexed by station type. Each mode carries an S2 grid index so the
// station search fallback stays cheap even with a large snapshot.
//
// The store is the station search fallback: when every Overpass mirror
// is down, the finder answers from here.
type Store struct {
	mu       sync.RWMutex
	cacheDir string
	networks map[models.StationType]*Network
	grids    map[models.StationType]*geo.Grid
	byID     map[models.StationType]map[string]models.Station
}

// NewStore initializes an empty Store rooted at the given cache directory.
func NewStore(cacheDir string) *Store {
	return &Store{
		cacheDir: cacheDir,
		networks: make(map[models.StationType]*Network),
		grids:    make(map[models.StationType]*geo.Grid),
		byID:     make(map[models.StationType]map[string]models.Station),
	}
}

// Set replaces the snapshot for the given mode wholesale and stamps it
// with the current time.
func (s *Store) Set(mode models.StationType, stations []models.Station, lines []models.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]models.Station, len(stations))
	for _, st := range stations {
		st.DistanceKm = 0 // contextual, meaningless in the snapshot
		byID[st.ID] = st
	}
	s.byID[mode] = byID
	s.rebuildLocked(mode, lines, time.Now().UTC())
}

// Merge upserts the given stations into the snapshot for the mode,
// keeping existing line data, and returns the number of stations that
// were new. Live fetch results are merged in so the fallback data stays
// warm without a dedicated crawl.
func (s *Store) Merge(mode models.StationType, stations []models.Station) int {
	if len(stations) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.byID[mode]
	if byID == nil {
		byID = make(map[string]models.Station, len(stations))
		s.byID[mode] = byID
	}

	added := 0
	for _, st := range stations {
		st.DistanceKm = 0
		if _, exists := byID[st.ID]; !exists {
			added++
		}
		byID[st.ID] = st
	}

	var lines []models.Line
	if network, ok := s.networks[mode]; ok {
		lines = network.Lines
	}
	s.rebuildLocked(mode, lines, time.Now().UTC())
	return added
}

// SetLines attaches line membership data to an existing snapshot without
// touching its stations. A snapshot with no stations yet is created.
func (s *Store) SetLines(mode models.StationType, lines []models.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byID[mode] == nil {
		s.byID[mode] = make(map[string]models.Station)
	}
	s.rebuildLocked(mode, lines, time.Now().UTC())
}

// rebuildLocked regenerates the Network record and the grid index for a
// mode from the byID map. Callers must hold the write lock.
func (s *Store) rebuildLocked(mode models.StationType, lines []models.Line, updated time.Time) {
	byID := s.byID[mode]

	stations := make([]models.Station, 0, len(byID))
	for _, st := range byID {
		stations = append(stations, st)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })

	grid := geo.NewGrid()
	for _, st := range stations {
		grid.Insert(st.ID, st.Location)
	}

	s.networks[mode] = &Network{
		Stations:    stations,
		Lines:       lines,
		LastUpdated: utils.CustomTime(updated),
	}
	s.grids[mode] = grid
}

// Get retrieves the snapshot for the given mode. The returned Network
// must be treated as read-only.
func (s *Store) Get(mode models.StationType) (*Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	network, exists := s.networks[mode]
	return network, exists
}

// FindByName returns the first station of the mode whose normalized
// name matches.
func (s *Store) FindByName(mode models.StationType, name string) (models.Station, bool) {
	normalized := utils.NormalizeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	network, exists := s.networks[mode]
	if !exists {
		return models.Station{}, false
	}
	for _, station := range network.Stations {
		if utils.NormalizeName(station.Name) == normalized {
			return station, true
		}
	}
	return models.Station{}, false
}

// LastUpdated returns the capture time of the snapshot for the mode.
func (s *Store) LastUpdated(mode models.StationType) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if network, exists := s.networks[mode]; exists {
		return network.LastUpdated.Time(), true
	}
	return time.Time{}, false
}

// Near returns snapshot stations of every mode within radiusKm of pt,
// decorated with their distance from pt, sorted ascending and truncated
// to limit (limit <= 0 means no truncation).
func (s *Store) Near(pt geo.Point, radiusKm float64, limit int) []models.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Station
	for mode, grid := range s.grids {
		byID := s.byID[mode]
		for _, neighbor := range grid.Near(pt, radiusKm) {
			station, ok := byID[neighbor.ID]
			if !ok {
				continue
			}
			station.DistanceKm = neighbor.DistanceKm
			result = append(result, station)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].DistanceKm < result[j].DistanceKm })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Save writes the snapshot for the mode to its JSON file. The write goes
// through a temp file and a rename so a crash cannot leave a torn file.
func (s *Store) Save(mode models.StationType) error {
	s.mu.RLock()
	network, exists := s.networks[mode]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no snapshot loaded for mode %s", mode)
	}

	data, err := json.Marshal(network)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("mode", string(mode)),
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to marshal snapshot for mode %s: %w", mode, err)
	}

	path := s.path(mode)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("mode", string(mode)),
			ExtraContext: map[string]interface{}{
				"path": tmp,
			},
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to write snapshot for mode %s: %w", mode, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("mode", string(mode)),
			ExtraContext: map[string]interface{}{
				"path": path,
			},
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to replace snapshot for mode %s: %w", mode, err)
	}
	return nil
}

// Load reads the snapshot file for the mode into memory and rebuilds the
// grid index. A missing file is returned as-is so callers can treat it
// as a non-event.
func (s *Store) Load(mode models.StationType) error {
	data, err := os.ReadFile(s.path(mode))
	if err != nil {
		return err
	}

	var network Network
	if err := json.Unmarshal(data, &network); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("mode", string(mode)),
			ExtraContext: map[string]interface{}{
				"path": s.path(mode),
			},
			Level: sentry.LevelError,
		})
		return fmt.Errorf("failed to unmarshal snapshot for mode %s: %w", mode, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]models.Station, len(network.Stations))
	for _, st := range network.Stations {
		byID[st.ID] = st
	}
	s.byID[mode] = byID
	s.rebuildLocked(mode, network.Lines, network.LastUpdated.Time())
	return nil
}

// LoadAll loads every mode's snapshot on a best-effort basis. Missing
// files are logged at info level; corrupt files are reported and skipped.
func (s *Store) LoadAll(logger *slog.Logger) {
	for _, mode := range []models.StationType{models.StationTypeMetro, models.StationTypeBus} {
		err := s.Load(mode)
		switch {
		case err == nil:
			network, _ := s.Get(mode)
			logger.Info("Loaded network snapshot",
				"mode", string(mode),
				"stations", len(network.Stations),
				"lines", len(network.Lines),
				"last_updated", network.LastUpdated.Time())
		case os.IsNotExist(err):
			logger.Info("No network snapshot on disk", "mode", string(mode))
		default:
			logger.Error("Failed to load network snapshot", "mode", string(mode), "error", err)
		}
	}
}

// Invalidate drops the in-memory snapshot for the mode and removes its
// file from disk.
func (s *Store) Invalidate(mode models.StationType) error {
	s.mu.Lock()
	delete(s.networks, mode)
	delete(s.grids, mode)
	delete(s.byID, mode)
	s.mu.Unlock()

	if err := os.Remove(s.path(mode)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot file for mode %s: %w", mode, err)
	}
	return nil
}

func (s *Store) path(mode models.StationType) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("snapshot_%s.json", mode))
}
