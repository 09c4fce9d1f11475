package utils

import "strings"

// MakeMap creates and returns a map[string]string containing a single key-value pair.
func MakeMap(key, value string) map[string]string {
	return map[string]string{key: value}
}

// Clamp bounds v to the inclusive range [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt bounds v to the inclusive range [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeName lowercases a place or station name and collapses runs of
// whitespace to single spaces. Station names arrive from several sources
// (user input, geocoder results, map data, GTFS feeds) with inconsistent
// casing and spacing; all name comparisons and cache keys go through this.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
