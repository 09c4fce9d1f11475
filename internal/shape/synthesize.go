package shape

import (
	"math"
	"math/rand/v2"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/utils"
)

// Jitter amplitudes as a fraction of the direct distance. Walking wobbles
// a little, buses follow road-sized detours, metro sweeps one smooth arc.
const (
	walkJitterFraction = 0.03
	busJitterFraction  = 0.08
	metroCurveFraction = 0.05
)

// Synthesize produces a plausible polyline between two points for the
// given mode. The first and last points are exactly from and to, interior
// points are great-circle interpolations displaced perpendicular to the
// direct bearing. The output is display geometry only; it follows no real
// infrastructure. Pass a seeded rng for deterministic output, or nil to
// use the shared generator.
func Synthesize(from, to geo.Point, mode models.StepType, rng *rand.Rand) []geo.Point {
	random := rand.Float64
	if rng != nil {
		random = rng.Float64
	}

	direct := geo.HaversineKm(from, to)
	if direct == 0 || math.IsNaN(direct) {
		return []geo.Point{from, to}
	}

	count := waypointCount(mode, direct)
	bearing := geo.BearingDeg(from, to)

	points := make([]geo.Point, 0, count)
	points = append(points, from)
	for i := 1; i < count-1; i++ {
		fraction := float64(i) / float64(count-1)
		base := geo.Intermediate(from, to, fraction)

		var offsetKm float64
		switch mode {
		case models.StepMetro:
			// One smooth arc; no noise at all.
			offsetKm = direct * metroCurveFraction * math.Sin(math.Pi*fraction)
		case models.StepBus:
			offsetKm = direct * busJitterFraction * (random()*2 - 1)
		default:
			offsetKm = direct * walkJitterFraction * (random()*2 - 1)
		}

		points = append(points, geo.DestinationPoint(base, bearing+90, offsetKm))
	}
	points = append(points, to)
	return points
}

// waypointCount scales the number of polyline points with distance and
// mode: metro stays straight on few points, walking gets the most wiggle
// room.
func waypointCount(mode models.StepType, directKm float64) int {
	switch mode {
	case models.StepMetro:
		return utils.ClampInt(int(directKm)+2, 3, 10)
	case models.StepBus:
		return utils.ClampInt(int(directKm*2)+3, 5, 16)
	default:
		return utils.ClampInt(int(directKm*5)+3, 5, 20)
	}
}
