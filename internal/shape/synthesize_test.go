package shape

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/models"
)

var (
	synthFrom = geo.Point{Lat: 28.6129, Lon: 77.2295}
	synthTo   = geo.Point{Lat: 28.6562, Lon: 77.2410}
)

func TestSynthesizeEndpoints(t *testing.T) {
	for _, mode := range []models.StepType{models.StepWalk, models.StepBus, models.StepMetro} {
		t.Run(string(mode), func(t *testing.T) {
			points := Synthesize(synthFrom, synthTo, mode, rand.New(rand.NewPCG(1, 2)))
			if len(points) < 2 {
				t.Fatalf("expected at least two points, got %d", len(points))
			}
			if points[0] != synthFrom {
				t.Errorf("first point %v is not the origin", points[0])
			}
			if points[len(points)-1] != synthTo {
				t.Errorf("last point %v is not the destination", points[len(points)-1])
			}
		})
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	first := Synthesize(synthFrom, synthTo, models.StepWalk, rand.New(rand.NewPCG(7, 11)))
	second := Synthesize(synthFrom, synthTo, models.StepWalk, rand.New(rand.NewPCG(7, 11)))
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output for an identical seed")
	}
}

func TestSynthesizeMetroNeedsNoSeed(t *testing.T) {
	// The metro arc is a pure sinusoid; two unseeded calls must agree.
	first := Synthesize(synthFrom, synthTo, models.StepMetro, nil)
	second := Synthesize(synthFrom, synthTo, models.StepMetro, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("expected the metro arc to be deterministic")
	}
}

func TestSynthesizeIdenticalPoints(t *testing.T) {
	points := Synthesize(synthFrom, synthFrom, models.StepWalk, nil)
	if len(points) != 2 {
		t.Fatalf("expected the two shared endpoints, got %d points", len(points))
	}
	if points[0] != synthFrom || points[1] != synthFrom {
		t.Errorf("unexpected points %v", points)
	}
}

func TestSynthesizeStaysNearTheLeg(t *testing.T) {
	direct := geo.HaversineKm(synthFrom, synthTo)
	for _, mode := range []models.StepType{models.StepWalk, models.StepBus, models.StepMetro} {
		points := Synthesize(synthFrom, synthTo, mode, rand.New(rand.NewPCG(3, 5)))
		for i, point := range points {
			if geo.HaversineKm(synthFrom, point) > direct*1.2 {
				t.Errorf("%s point %d drifted %.2f km from the origin", mode, i, geo.HaversineKm(synthFrom, point))
			}
		}
	}
}

func TestWaypointCountScalesByMode(t *testing.T) {
	walk := waypointCount(models.StepWalk, 10)
	bus := waypointCount(models.StepBus, 10)
	metro := waypointCount(models.StepMetro, 10)

	if walk <= metro {
		t.Errorf("expected walking to carry more waypoints than metro, got %d vs %d", walk, metro)
	}
	if bus <= metro {
		t.Errorf("expected bus to carry more waypoints than metro, got %d vs %d", bus, metro)
	}
	if metro < 3 {
		t.Errorf("expected at least 3 metro waypoints, got %d", metro)
	}
}
