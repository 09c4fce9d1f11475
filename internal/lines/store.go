package lines

import (
	"sync"

	"saarthi.opentransit.in/internal/models"
)

type networkLines struct {
	mode  models.StationType
	lines []models.Line
}

// Store is a thread-safe holder for the merged line topology across all
// configured networks. Writers replace one network's lines at a time;
// readers take an immutable Topology snapshot and query it lock-free.
type Store struct {
	mu        sync.RWMutex
	byNetwork map[string]networkLines
	topo      *Topology
}

// NewStore initializes and returns a new, empty Store. Its Topology is
// empty but never nil, so callers can query it unconditionally.
func NewStore() *Store {
	return &Store{
		byNetwork: make(map[string]networkLines),
		topo:      newTopology(nil),
	}
}

// ReplaceNetwork swaps in fresh line data for one network and rebuilds
// the merged topology.
func (s *Store) ReplaceNetwork(network string, mode models.StationType, lines []models.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byNetwork[network] = networkLines{mode: mode, lines: lines}

	var merged []models.Line
	for _, entry := range s.byNetwork {
		merged = append(merged, entry.lines...)
	}
	s.topo = newTopology(merged)
}

// Topology returns the current merged topology. The returned value is
// immutable and safe to use after subsequent ReplaceNetwork calls.
func (s *Store) Topology() *Topology {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topo
}

// LinesForMode returns every line of the given mode across networks.
func (s *Store) LinesForMode(mode models.StationType) []models.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []models.Line
	for _, entry := range s.byNetwork {
		if entry.mode == mode {
			lines = append(lines, entry.lines...)
		}
	}
	return lines
}

// Networks returns the names of networks with loaded line data.
func (s *Store) Networks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	networks := make([]string, 0, len(s.byNetwork))
	for network := range s.byNetwork {
		networks = append(networks, network)
	}
	return networks
}
