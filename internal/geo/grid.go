package geo

import (
	"sort"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const gridLevel = 10 // S2 cell level with 7–10 km spatial resolution

// Neighbor is a grid entry returned by Near, annotated with its distance
// from the query point.
type Neighbor struct {
	ID         string
	DistanceKm float64
}

type gridEntry struct {
	id string
	pt Point
}

// Grid buckets points into fixed-level S2 cells so that "entries near point"
// queries touch only the cells overlapping the search radius instead of the
// whole set. Safe for concurrent use.
type Grid struct {
	mu    sync.RWMutex
	level int
	cells map[s2.CellID][]gridEntry
	count int
}

// NewGrid creates and returns an empty Grid.
func NewGrid() *Grid {
	return &Grid{
		level: gridLevel,
		cells: make(map[s2.CellID][]gridEntry),
	}
}

// Insert adds a point under the given ID.
func (g *Grid) Insert(id string, pt Point) {
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(pt.Lat, pt.Lon)).Parent(g.level)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells[cell] = append(g.cells[cell], gridEntry{id: id, pt: pt})
	g.count++
}

// Len returns the number of inserted entries.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.count
}

// Near returns the IDs of all entries within radiusKm of pt, sorted
// ascending by distance from pt.
func (g *Grid) Near(pt Point, radiusKm float64) []Neighbor {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(pt.Lat, pt.Lon))
	searchCap := s2.CapFromCenterAngle(center, s1.Angle(radiusKm/earthRadiusKm))
	coverer := &s2.RegionCoverer{MinLevel: g.level, MaxLevel: g.level, MaxCells: 256}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var neighbors []Neighbor
	for _, cell := range coverer.Covering(searchCap) {
		for _, entry := range g.cells[cell] {
			d := HaversineKm(pt, entry.pt)
			if d <= radiusKm {
				neighbors = append(neighbors, Neighbor{ID: entry.id, DistanceKm: d})
			}
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].DistanceKm < neighbors[j].DistanceKm
	})
	return neighbors
}
