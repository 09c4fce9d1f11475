package config

import (
	"strings"
	"sync"

	"saarthi.opentransit.in/internal/geo"
)

// Config holds all the configuration settings for our application.
// The refreshable parts (mirror pool, city table, metro network list) are
// guarded by Mu and must be read through the accessor methods.
type Config struct {
	Port     int    `yaml:"port" validate:"gt=0,lte=65535"`
	Env      string `yaml:"env" validate:"omitempty,oneof=development staging production testing"`
	CacheDir string `yaml:"cache_dir"`

	// UserAgent identifies this service to the upstream providers.
	// Nominatim's usage policy requires a meaningful value.
	UserAgent string `yaml:"user_agent" validate:"required"`

	Geocoder GeocoderConfig `yaml:"geocoder"`
	Overpass OverpassConfig `yaml:"overpass"`
	Router   RouterConfig   `yaml:"router"`
	Planner  PlannerConfig  `yaml:"planner"`
	Topology TopologyConfig `yaml:"topology"`
	Cities   []City         `yaml:"cities" validate:"dive"`

	Mu sync.RWMutex `yaml:"-"`
}

// GeocoderConfig points at a Nominatim-compatible place search service.
type GeocoderConfig struct {
	BaseURL         string `yaml:"base_url" validate:"required,url"`
	CountryCodes    string `yaml:"country_codes"`
	Limit           int    `yaml:"limit" validate:"gt=0,lte=50"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" validate:"gte=0"`
}

// OverpassConfig describes the station source: a pool of equivalent
// Overpass API mirrors plus retry and rate limit tuning.
type OverpassConfig struct {
	Mirrors           []string `yaml:"mirrors" validate:"required,min=1,dive,url"`
	TimeoutSeconds    int      `yaml:"timeout_seconds" validate:"gt=0"`
	MaxRetries        int      `yaml:"max_retries" validate:"gte=0"`
	RequestsPerMinute int      `yaml:"requests_per_minute" validate:"gt=0"`
	CacheTTLMinutes   int      `yaml:"cache_ttl_minutes" validate:"gte=0"`

	// MetroNetworks lists network tag values that mark a rail station as
	// part of a metro system even when the station subtag is missing.
	MetroNetworks []string `yaml:"metro_networks"`
}

// RouterConfig points at an OSRM-compatible routing service used for leg
// geometry. An empty base URL disables profile routing; legs then fall
// back to synthesized paths.
type RouterConfig struct {
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// PlannerConfig tunes candidate search and pairing heuristics.
type PlannerConfig struct {
	MaxCandidates         int     `yaml:"max_candidates" validate:"gt=0,lte=10"`
	MinRadiusKm           float64 `yaml:"min_radius_km" validate:"gt=0"`
	MaxRadiusKm           float64 `yaml:"max_radius_km" validate:"gtfield=MinRadiusKm"`
	RadiusFactor          float64 `yaml:"radius_factor" validate:"gt=0"`
	TransitDistanceFactor float64 `yaml:"transit_distance_factor" validate:"gt=0"`
	UnknownCityCeilingKm  float64 `yaml:"unknown_city_ceiling_km" validate:"gt=0"`
}

// TopologyFeed is one static GTFS feed that contributes line membership
// data for a transit network.
type TopologyFeed struct {
	Network string `yaml:"network" validate:"required"`
	Mode    string `yaml:"mode" validate:"required,oneof=metro bus"`
	GtfsURL string `yaml:"gtfs_url" validate:"required,url"`
}

// TopologyConfig lists the GTFS feeds to build line topologies from.
// With no feeds configured the planner runs on connectivity heuristics
// alone.
type TopologyConfig struct {
	Feeds        []TopologyFeed `yaml:"feeds" validate:"dive"`
	RefreshHours int            `yaml:"refresh_hours" validate:"gte=0"`
}

// City maps a metropolitan area name to its bounding box. Stations with
// no address tags are attributed to a city by point-in-box lookup.
type City struct {
	Name   string          `yaml:"name" json:"name" validate:"required"`
	Bounds geo.BoundingBox `yaml:"bounds" json:"bounds"`
}

// GetMirrors safely returns a copy of the Overpass mirror pool.
// This method should be used to access the mirrors from other parts of
// the application.
func (cfg *Config) GetMirrors() []string {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return append([]string(nil), cfg.Overpass.Mirrors...)
}

// GetCities safely returns a copy of the city table.
func (cfg *Config) GetCities() []City {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return append([]City(nil), cfg.Cities...)
}

// CityFor returns the name of the configured city whose bounding box
// contains the given coordinate, or "unknown" when no box matches.
func (cfg *Config) CityFor(lat, lon float64) string {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	for i := range cfg.Cities {
		if cfg.Cities[i].Bounds.Contains(lat, lon) {
			return cfg.Cities[i].Name
		}
	}
	return "unknown"
}

// IsMetroNetwork reports whether the network tag value names a known
// metro system. Matching is case-insensitive on substring so variants
// like "DMRC | Delhi Metro Rail Corporation" still match.
func (cfg *Config) IsMetroNetwork(network string) bool {
	if network == "" {
		return false
	}
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	lowered := strings.ToLower(network)
	for _, known := range cfg.Overpass.MetroNetworks {
		if strings.Contains(lowered, strings.ToLower(known)) {
			return true
		}
	}
	return false
}

// ApplyRefreshable safely replaces the parts of the configuration that
// may change while the process runs: the mirror pool, the city table,
// and the metro network list. Everything else requires a restart.
func (cfg *Config) ApplyRefreshable(fresh *Config) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Overpass.Mirrors = append([]string(nil), fresh.Overpass.Mirrors...)
	cfg.Overpass.MetroNetworks = append([]string(nil), fresh.Overpass.MetroNetworks...)
	cfg.Cities = append([]City(nil), fresh.Cities...)
}
