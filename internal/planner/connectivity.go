package planner

import (
	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/lines"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/utils"
)

// pairing is the connectivity verdict for one candidate station pair.
// The zero value means the pair does not connect.
type pairing struct {
	ok       bool
	sameLine bool
	line     models.Line

	// via and the two lines are set when the topology found a line
	// change through a shared interchange station.
	via   string
	lineA models.Line
	lineB models.Line
}

// classifyPair decides whether one transit leg can plausibly connect the
// pair. Stations in different known cities never connect. Unknown-city
// pairs connect tentatively under the distance ceiling. When the line
// topology covers both station names, explicit membership decides: a
// shared line, a known interchange within one network, or nothing.
// Without topology data a shared named network connects, and same-city
// same-type pairs connect optimistically.
func classifyPair(a, b models.Station, transitKm float64, topo *lines.Topology, cfg config.PlannerConfig) pairing {
	bothKnown := a.City != models.UnknownCity && b.City != models.UnknownCity
	if bothKnown && a.City != b.City {
		return pairing{}
	}
	if !bothKnown {
		if transitKm <= cfg.UnknownCityCeilingKm {
			return pairing{ok: true}
		}
		return pairing{}
	}

	if topo != nil && topo.Covers(a.Name) && topo.Covers(b.Name) {
		if line, ok := topo.SameLine(a.Name, b.Name); ok {
			return pairing{ok: true, sameLine: true, line: line}
		}
		if via, lineA, lineB, ok := topo.Interchange(a.Name, b.Name); ok {
			return pairing{ok: true, via: via, lineA: lineA, lineB: lineB}
		}
		return pairing{}
	}

	if a.Network != models.UnknownNetwork &&
		utils.NormalizeName(a.Network) == utils.NormalizeName(b.Network) {
		return pairing{ok: true}
	}
	if a.City == b.City && a.Type == b.Type {
		return pairing{ok: true}
	}
	return pairing{}
}
