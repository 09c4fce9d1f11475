package planner

import (
	"fmt"
	"math"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
)

// Pace constants in minutes per kilometer. The mixed-mode penalty is a
// flat charge for the transfer between services.
const (
	walkPaceMinPerKm     = 15.0
	metroPaceMinPerKm    = 2.0
	metroSameLinePace    = 1.5
	busPaceMinPerKm      = 4.0
	mixedPaceMinPerKm    = 3.0
	mixedTransferPenalty = 10.0
)

func walkMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm * walkPaceMinPerKm))
}

func transitMinutes(a, b models.Station, distanceKm float64, sameLine bool) int {
	switch {
	case a.Type == models.StationTypeMetro && b.Type == models.StationTypeMetro && sameLine:
		return int(math.Round(distanceKm * metroSameLinePace))
	case a.Type == models.StationTypeMetro && b.Type == models.StationTypeMetro:
		return int(math.Round(distanceKm * metroPaceMinPerKm))
	case a.Type == models.StationTypeBus && b.Type == models.StationTypeBus:
		return int(math.Round(distanceKm * busPaceMinPerKm))
	default:
		return int(math.Round(distanceKm*mixedPaceMinPerKm + mixedTransferPenalty))
	}
}

// transitStepType labels a leg by the mode the rider boards first.
func transitStepType(a models.Station) models.StepType {
	if a.Type == models.StationTypeBus {
		return models.StepBus
	}
	return models.StepMetro
}

func transitInstruction(a, b models.Station, line models.Line, sameLine bool) string {
	bothMetro := a.Type == models.StationTypeMetro && b.Type == models.StationTypeMetro
	switch {
	case bothMetro && sameLine && line.Name != "":
		return fmt.Sprintf("Ride the %s from %s to %s.", line.Name, a.Name, b.Name)
	case bothMetro && sameLine:
		return fmt.Sprintf("Ride the metro from %s to %s.", a.Name, b.Name)
	case bothMetro:
		return fmt.Sprintf("Ride the metro from %s to %s. A line change may be required on the way.", a.Name, b.Name)
	case a.Type == models.StationTypeBus && b.Type == models.StationTypeBus:
		return fmt.Sprintf("Take a bus from %s to %s.", a.Name, b.Name)
	default:
		return fmt.Sprintf("Board the %s at %s and transfer to the %s to reach %s.", a.Type, a.Name, b.Type, b.Name)
	}
}

func walkStep(fromName, toName string, from, to geo.Point) models.RouteStep {
	distance := geo.HaversineKm(from, to)
	location := to
	return models.RouteStep{
		Type:            models.StepWalk,
		From:            fromName,
		To:              toName,
		DurationMinutes: walkMinutes(distance),
		DistanceKm:      distance,
		Instructions:    fmt.Sprintf("Walk %.1f km to %s.", distance, toName),
		Location:        &location,
	}
}

func transitStep(a, b models.Station, line models.Line, sameLine bool) models.RouteStep {
	distance := geo.HaversineKm(a.Location, b.Location)
	location := b.Location
	return models.RouteStep{
		Type:            transitStepType(a),
		From:            a.Name,
		To:              b.Name,
		DurationMinutes: transitMinutes(a, b, distance, sameLine),
		DistanceKm:      distance,
		Instructions:    transitInstruction(a, b, line, sameLine),
		Location:        &location,
	}
}
