package planner

import (
	"strings"
	"testing"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
)

func metroStation(name string) models.Station {
	return models.Station{Name: name, Type: models.StationTypeMetro, City: "delhi"}
}

func busStation(name string) models.Station {
	return models.Station{Name: name, Type: models.StationTypeBus, City: "delhi"}
}

func TestWalkMinutes(t *testing.T) {
	tests := []struct {
		distanceKm float64
		expected   int
	}{
		{0.4, 6},
		{0.3, 5}, // 4.5 rounds away from zero
		{1.0, 15},
		{0, 0},
	}
	for _, tc := range tests {
		if got := walkMinutes(tc.distanceKm); got != tc.expected {
			t.Errorf("walkMinutes(%v) = %d, expected %d", tc.distanceKm, got, tc.expected)
		}
	}
}

func TestTransitMinutes(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.Station
		km       float64
		sameLine bool
		expected int
	}{
		{"MetroSameLine", metroStation("a"), metroStation("b"), 6.0, true, 9},
		{"Metro", metroStation("a"), metroStation("b"), 6.0, false, 12},
		{"Bus", busStation("a"), busStation("b"), 2.5, false, 10},
		{"MixedCarriesTransferPenalty", metroStation("a"), busStation("b"), 2.0, false, 16},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := transitMinutes(tc.a, tc.b, tc.km, tc.sameLine); got != tc.expected {
				t.Errorf("transitMinutes = %d, expected %d", got, tc.expected)
			}
		})
	}
}

func TestRouteDurationIsStepSum(t *testing.T) {
	route := models.NewRoute("route-1", []models.RouteStep{
		{Type: models.StepWalk, DurationMinutes: walkMinutes(0.4)},
		{Type: models.StepMetro, DurationMinutes: transitMinutes(metroStation("a"), metroStation("b"), 6.0, true)},
		{Type: models.StepWalk, DurationMinutes: walkMinutes(0.3)},
	})
	if route.DurationMinutes != 20 {
		t.Errorf("expected 6+9+5 = 20 minutes, got %d", route.DurationMinutes)
	}
}

func TestTransitInstruction(t *testing.T) {
	line := models.Line{ID: "dm-blue", Name: "Blue Line", Network: "Delhi Metro"}

	withLine := transitInstruction(metroStation("Dwarka"), metroStation("Noida City Centre"), line, true)
	if !strings.Contains(withLine, "Blue Line") {
		t.Errorf("expected the line name: %s", withLine)
	}

	noLine := transitInstruction(metroStation("Dwarka"), metroStation("Noida City Centre"), models.Line{}, false)
	if !strings.Contains(noLine, "line change") {
		t.Errorf("expected the line change caveat: %s", noLine)
	}

	bus := transitInstruction(busStation("Mori Gate"), busStation("Sarai Kale Khan"), models.Line{}, false)
	if !strings.Contains(bus, "bus") {
		t.Errorf("expected a bus instruction: %s", bus)
	}

	mixed := transitInstruction(metroStation("Kashmere Gate"), busStation("ISBT"), models.Line{}, false)
	if !strings.Contains(mixed, "transfer") {
		t.Errorf("expected the transfer caveat: %s", mixed)
	}
}

func TestWalkStepEndpoints(t *testing.T) {
	from := geo.Point{Lat: 28.6129, Lon: 77.2295}
	to := geo.Point{Lat: 28.6147, Lon: 77.2119}

	step := walkStep("India Gate", "Central Secretariat", from, to)
	if step.Type != models.StepWalk {
		t.Errorf("unexpected step type %s", step.Type)
	}
	if step.From != "India Gate" || step.To != "Central Secretariat" {
		t.Errorf("unexpected endpoints %s -> %s", step.From, step.To)
	}
	if step.DistanceKm <= 0 {
		t.Error("expected a positive distance")
	}
	if step.Location == nil || *step.Location != to {
		t.Errorf("expected the step location to be the walk target, got %v", step.Location)
	}
	if !strings.Contains(step.Instructions, "Central Secretariat") {
		t.Errorf("expected the target in the instructions: %s", step.Instructions)
	}
}
