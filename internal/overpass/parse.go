package overpass

import (
	"encoding/json"
	"fmt"
	"sort"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/utils"
)

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

// coordinate returns the element's point, preferring the node position and
// falling back to the way center. The second return is false when neither
// yields a usable coordinate.
func (e *overpassElement) coordinate() (geo.Point, bool) {
	if geo.IsValidLatLon(e.Lat, e.Lon) {
		return geo.Point{Lat: e.Lat, Lon: e.Lon}, true
	}
	if e.Center != nil && geo.IsValidLatLon(e.Center.Lat, e.Center.Lon) {
		return geo.Point{Lat: e.Center.Lat, Lon: e.Center.Lon}, true
	}
	return geo.Point{}, false
}

// displayName picks the station name along the fallback chain
// name:en, name, ref, then a synthetic "Station <id>" label.
func (e *overpassElement) displayName() string {
	for _, key := range []string{"name:en", "name", "ref"} {
		if v := e.Tags[key]; v != "" {
			return v
		}
	}
	return fmt.Sprintf("Station %d", e.ID)
}

// classifier answers the two lookups parsing needs from configuration.
type classifier interface {
	IsMetroNetwork(network string) bool
	CityFor(lat, lon float64) string
}

// classify maps the element's tags to a station type. Elements matching
// none of the query's tag shapes are rejected.
func classify(tags map[string]string, cls classifier) (models.StationType, bool) {
	if tags["railway"] == "station" {
		if s := tags["station"]; s == "subway" || s == "metro" {
			return models.StationTypeMetro, true
		}
		if network := tags["network"]; network != "" && cls.IsMetroNetwork(network) {
			return models.StationTypeMetro, true
		}
		// A rail station with some other network tag still rides like
		// metro for pairing purposes.
		if tags["network"] != "" {
			return models.StationTypeMetro, true
		}
		return "", false
	}
	if tags["highway"] == "bus_stop" || tags["amenity"] == "bus_station" {
		return models.StationTypeBus, true
	}
	return "", false
}

// parseStations converts an Overpass JSON payload into station records
// annotated with the distance from the query point, sorted ascending and
// truncated to limit. Malformed elements are dropped individually; the
// batch survives. Duplicate names collapse to the first-seen element.
func parseStations(body []byte, from geo.Point, limit int, cls classifier) ([]models.Station, error) {
	var response overpassResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Overpass response: %w", err)
	}

	seen := make(map[string]struct{}, len(response.Elements))
	stations := make([]models.Station, 0, len(response.Elements))

	for _, element := range response.Elements {
		point, ok := element.coordinate()
		if !ok {
			continue
		}
		stationType, ok := classify(element.Tags, cls)
		if !ok {
			continue
		}

		name := element.displayName()
		normalized := utils.NormalizeName(name)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		city := models.UnknownCity
		if v := element.Tags["addr:city"]; v != "" {
			city = utils.NormalizeName(v)
		} else {
			city = cls.CityFor(point.Lat, point.Lon)
		}

		network := element.Tags["network"]
		if network == "" {
			network = element.Tags["operator"]
		}
		if network == "" {
			network = models.UnknownNetwork
		}

		stations = append(stations, models.Station{
			ID:         fmt.Sprintf("osm:%s/%d", element.Type, element.ID),
			Name:       name,
			Type:       stationType,
			City:       city,
			Network:    network,
			Location:   point,
			DistanceKm: geo.HaversineKm(from, point),
			Tags:       element.Tags,
		})
	}

	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].DistanceKm < stations[j].DistanceKm
	})
	if limit > 0 && len(stations) > limit {
		stations = stations[:limit]
	}
	return stations, nil
}
