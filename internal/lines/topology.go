package lines

import (
	"fmt"
	"sort"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/utils"
)

// Topology is an immutable station-name to line-membership index built
// from static GTFS feeds. Station names are normalized (lowercased,
// whitespace collapsed) so that provider spellings and feed spellings
// have a chance to meet.
//
// A Topology is never mutated after construction, so it can be shared
// across goroutines without locking; the Store swaps whole instances.
type Topology struct {
	linesByID  map[string]models.Line
	membership map[string]map[string]struct{}
	networks   map[string]struct{}
}

func newTopology(lines []models.Line) *Topology {
	t := &Topology{
		linesByID:  make(map[string]models.Line, len(lines)),
		membership: make(map[string]map[string]struct{}),
		networks:   make(map[string]struct{}),
	}
	for _, line := range lines {
		t.linesByID[line.ID] = line
		t.networks[utils.NormalizeName(line.Network)] = struct{}{}
		for _, station := range line.Stations {
			if t.membership[station] == nil {
				t.membership[station] = make(map[string]struct{})
			}
			t.membership[station][line.ID] = struct{}{}
		}
	}
	return t
}

// Empty reports whether the topology carries no line data at all.
func (t *Topology) Empty() bool {
	return len(t.linesByID) == 0
}

// Covers reports whether the station name appears on any known line.
func (t *Topology) Covers(stationName string) bool {
	_, ok := t.membership[utils.NormalizeName(stationName)]
	return ok
}

// NetworkCovered reports whether any line data exists for the network.
func (t *Topology) NetworkCovered(network string) bool {
	_, ok := t.networks[utils.NormalizeName(network)]
	return ok
}

// SameLine returns a line that both stations sit on, if one exists.
// When several lines qualify the lexicographically smallest line ID wins,
// keeping results stable across runs.
func (t *Topology) SameLine(a, b string) (models.Line, bool) {
	linesA := t.membership[utils.NormalizeName(a)]
	linesB := t.membership[utils.NormalizeName(b)]
	if len(linesA) == 0 || len(linesB) == 0 {
		return models.Line{}, false
	}

	var shared []string
	for id := range linesA {
		if _, ok := linesB[id]; ok {
			shared = append(shared, id)
		}
	}
	if len(shared) == 0 {
		return models.Line{}, false
	}
	sort.Strings(shared)
	return t.linesByID[shared[0]], true
}

// Interchange finds a station where a rider can switch from a line
// serving a to a different line of the same network serving b. It
// returns the interchange station name (normalized), the two lines, and
// whether such a connection exists. Pairs already on a shared line are
// not considered.
func (t *Topology) Interchange(a, b string) (string, models.Line, models.Line, bool) {
	normA := utils.NormalizeName(a)
	normB := utils.NormalizeName(b)

	linesA := sortedIDs(t.membership[normA])
	linesB := sortedIDs(t.membership[normB])
	if len(linesA) == 0 || len(linesB) == 0 {
		return "", models.Line{}, models.Line{}, false
	}

	for _, idA := range linesA {
		lineA := t.linesByID[idA]
		onA := make(map[string]struct{}, len(lineA.Stations))
		for _, station := range lineA.Stations {
			onA[station] = struct{}{}
		}

		for _, idB := range linesB {
			if idA == idB {
				continue
			}
			lineB := t.linesByID[idB]
			if utils.NormalizeName(lineA.Network) != utils.NormalizeName(lineB.Network) {
				continue
			}
			for _, station := range lineB.Stations {
				if station == normA || station == normB {
					continue
				}
				if _, ok := onA[station]; ok {
					return station, lineA, lineB, true
				}
			}
		}
	}
	return "", models.Line{}, models.Line{}, false
}

// Lines returns every known line sorted by ID.
func (t *Topology) Lines() []models.Line {
	ids := make([]string, 0, len(t.linesByID))
	for id := range t.linesByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]models.Line, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, t.linesByID[id])
	}
	return lines
}

func sortedIDs(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// routeMatchesMode maps numeric GTFS route types onto the two transit
// modes this service models. Subway (1), rail (2) and monorail (12)
// count as metro; bus (3) and trolleybus (11) count as bus.
func routeMatchesMode(routeType remoteGtfs.RouteType, mode models.StationType) bool {
	switch mode {
	case models.StationTypeMetro:
		switch int(routeType) {
		case 1, 2, 12:
			return true
		}
	case models.StationTypeBus:
		switch int(routeType) {
		case 3, 11:
			return true
		}
	}
	return false
}

// buildLines flattens a parsed GTFS static bundle into ordered station
// name lists per route, keeping only routes of the requested mode.
//
// A route's station order is taken from its longest trip first, then
// extended with stations that only shorter or reverse trips visit.
func buildLines(network string, mode models.StationType, static *remoteGtfs.Static) []models.Line {
	type routeAgg struct {
		name     string
		stations []string
		seen     map[string]struct{}
	}
	byRoute := make(map[string]*routeAgg)

	trips := make([]*remoteGtfs.ScheduledTrip, 0, len(static.Trips))
	for i := range static.Trips {
		trips = append(trips, &static.Trips[i])
	}
	// Longest trips first so the dominant stop order defines the line.
	sort.SliceStable(trips, func(i, j int) bool {
		return len(trips[i].StopTimes) > len(trips[j].StopTimes)
	})

	for _, trip := range trips {
		if trip.Route == nil || !routeMatchesMode(trip.Route.Type, mode) {
			continue
		}

		agg, ok := byRoute[trip.Route.Id]
		if !ok {
			name := trip.Route.ShortName
			if name == "" {
				name = trip.Route.LongName
			}
			if name == "" {
				name = trip.Route.Id
			}
			agg = &routeAgg{name: name, seen: make(map[string]struct{})}
			byRoute[trip.Route.Id] = agg
		}

		for _, stopTime := range trip.StopTimes {
			if stopTime.Stop == nil {
				continue
			}
			station := utils.NormalizeName(stopTime.Stop.Name)
			if station == "" {
				continue
			}
			if _, exists := agg.seen[station]; exists {
				continue
			}
			agg.seen[station] = struct{}{}
			agg.stations = append(agg.stations, station)
		}
	}

	routeIDs := make([]string, 0, len(byRoute))
	for id := range byRoute {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)

	lines := make([]models.Line, 0, len(routeIDs))
	for _, routeID := range routeIDs {
		agg := byRoute[routeID]
		if len(agg.stations) < 2 {
			continue
		}
		lines = append(lines, models.Line{
			ID:       fmt.Sprintf("%s:%s", utils.NormalizeName(network), routeID),
			Name:     agg.name,
			Network:  network,
			Stations: agg.stations,
		})
	}
	return lines
}
