// Package overpass fetches transit stations near a point from a pool of
// Overpass API mirrors.
package overpass

import (
	"fmt"
	"strings"

	"saarthi.opentransit.in/internal/geo"
)

// buildQuery renders the Overpass QL statement for one station search.
// Rail stations are matched by the subway/metro station tag or by carrying
// a network tag; bus stops and bus stations come in as nodes, and bus
// stations additionally as ways whose center geometry stands in for the
// missing node coordinate.
func buildQuery(point geo.Point, radiusMeters int, timeoutSeconds int) string {
	var b strings.Builder
	around := fmt.Sprintf("(around:%d,%.7f,%.7f)", radiusMeters, point.Lat, point.Lon)

	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeoutSeconds)
	fmt.Fprintf(&b, "  node[\"railway\"=\"station\"][\"station\"=\"subway\"]%s;\n", around)
	fmt.Fprintf(&b, "  node[\"railway\"=\"station\"][\"station\"=\"metro\"]%s;\n", around)
	fmt.Fprintf(&b, "  node[\"railway\"=\"station\"][\"network\"]%s;\n", around)
	fmt.Fprintf(&b, "  node[\"highway\"=\"bus_stop\"]%s;\n", around)
	fmt.Fprintf(&b, "  node[\"amenity\"=\"bus_station\"]%s;\n", around)
	fmt.Fprintf(&b, "  way[\"amenity\"=\"bus_station\"]%s;\n", around)
	b.WriteString(");\nout center;\n")
	return b.String()
}
