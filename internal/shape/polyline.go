// Package shape produces display geometry for route legs: a routing
// profile query when one is configured and answers, a synthesized
// polyline otherwise.
package shape

import (
	"saarthi.opentransit.in/internal/geo"
)

// decodePolyline decodes a Google encoded polyline (precision 1e-5), the
// format OSRM emits for geometries=polyline. Malformed trailing bytes
// end the decode early rather than failing it.
func decodePolyline(encoded string) []geo.Point {
	var points []geo.Point
	var lat, lon int64

	i := 0
	for i < len(encoded) {
		dLat, next, ok := decodeChunk(encoded, i)
		if !ok {
			break
		}
		dLon, after, ok := decodeChunk(encoded, next)
		if !ok {
			break
		}
		i = after

		lat += dLat
		lon += dLon
		points = append(points, geo.Point{
			Lat: float64(lat) / 1e5,
			Lon: float64(lon) / 1e5,
		})
	}
	return points
}

// decodeChunk reads one zigzag varint starting at i and returns the
// signed delta and the index after it.
func decodeChunk(encoded string, i int) (int64, int, bool) {
	var result int64
	var shift uint
	for {
		if i >= len(encoded) {
			return 0, i, false
		}
		b := int64(encoded[i]) - 63
		if b < 0 {
			return 0, i, false
		}
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, true
	}
	return result >> 1, i, true
}
