package geo

import (
	"math"
	"testing"
)

var (
	indiaGate  = Point{Lat: 28.6129, Lon: 77.2295}
	redFort    = Point{Lat: 28.6562, Lon: 77.2410}
	rajivChowk = Point{Lat: 28.6327, Lon: 77.2197}
)

func TestHaversineKm(t *testing.T) {
	d := HaversineKm(indiaGate, redFort)

	// India Gate to Red Fort is just under 5 km as the crow flies.
	if d < 4.8 || d > 5.1 {
		t.Errorf("HaversineKm(indiaGate, redFort) = %v, expected roughly 4.9", d)
	}

	if rev := HaversineKm(redFort, indiaGate); math.Abs(rev-d) > 1e-9 {
		t.Errorf("distance is not symmetric: %v vs %v", d, rev)
	}

	if z := HaversineKm(indiaGate, indiaGate); z != 0 {
		t.Errorf("distance between identical points = %v, expected 0", z)
	}
}

func TestHaversineKmPropagatesNaN(t *testing.T) {
	bad := Point{Lat: math.NaN(), Lon: 77.2}
	if d := HaversineKm(bad, indiaGate); !math.IsNaN(d) {
		t.Errorf("expected NaN distance for NaN input, got %v", d)
	}
}

func TestBearingDeg(t *testing.T) {
	north := Point{Lat: indiaGate.Lat + 0.1, Lon: indiaGate.Lon}
	if b := BearingDeg(indiaGate, north); math.Abs(b) > 1e-9 {
		t.Errorf("bearing due north = %v, expected 0", b)
	}

	south := Point{Lat: indiaGate.Lat - 0.1, Lon: indiaGate.Lon}
	if b := BearingDeg(indiaGate, south); math.Abs(b-180) > 1e-9 {
		t.Errorf("bearing due south = %v, expected 180", b)
	}

	// Over a tenth of a degree the great circle deviates from the parallel
	// by well under a tenth of a degree of bearing.
	east := Point{Lat: indiaGate.Lat, Lon: indiaGate.Lon + 0.1}
	if b := BearingDeg(indiaGate, east); math.Abs(b-90) > 0.1 {
		t.Errorf("bearing due east = %v, expected close to 90", b)
	}

	west := Point{Lat: indiaGate.Lat, Lon: indiaGate.Lon - 0.1}
	if b := BearingDeg(indiaGate, west); math.Abs(b-270) > 0.1 {
		t.Errorf("bearing due west = %v, expected close to 270", b)
	}
}

func TestBearingDegNormalized(t *testing.T) {
	// Heading northwest the raw atan2 result is negative; the returned
	// bearing must land in [0, 360).
	northwest := Point{Lat: indiaGate.Lat + 0.1, Lon: indiaGate.Lon - 0.1}
	b := BearingDeg(indiaGate, northwest)
	if b < 270 || b >= 360 {
		t.Errorf("northwest bearing = %v, expected within [270, 360)", b)
	}
}

func TestDestinationPointRoundTrip(t *testing.T) {
	const (
		bearing  = 45.0
		distance = 10.0
	)

	dest := DestinationPoint(indiaGate, bearing, distance)

	if d := HaversineKm(indiaGate, dest); math.Abs(d-distance) > 1e-6 {
		t.Errorf("distance to destination = %v, expected %v", d, distance)
	}
	if b := BearingDeg(indiaGate, dest); math.Abs(b-bearing) > 1e-6 {
		t.Errorf("bearing to destination = %v, expected %v", b, bearing)
	}
}

func TestDestinationPointZeroDistance(t *testing.T) {
	dest := DestinationPoint(indiaGate, 123, 0)
	if math.Abs(dest.Lat-indiaGate.Lat) > 1e-9 || math.Abs(dest.Lon-indiaGate.Lon) > 1e-9 {
		t.Errorf("zero-distance destination = %+v, expected origin %+v", dest, indiaGate)
	}
}

func TestDestinationPointNormalizesLongitude(t *testing.T) {
	nearDateline := Point{Lat: 10, Lon: 179.9}
	dest := DestinationPoint(nearDateline, 90, 50)

	if dest.Lon < -180 || dest.Lon > 180 {
		t.Fatalf("destination longitude %v outside [-180, 180]", dest.Lon)
	}
	if dest.Lon >= 0 {
		t.Errorf("destination longitude = %v, expected to wrap past the antimeridian", dest.Lon)
	}
	if d := HaversineKm(nearDateline, dest); math.Abs(d-50) > 1e-6 {
		t.Errorf("distance across the antimeridian = %v, expected 50", d)
	}
}

func TestIntermediate(t *testing.T) {
	start := Intermediate(indiaGate, redFort, 0)
	if math.Abs(start.Lat-indiaGate.Lat) > 1e-9 || math.Abs(start.Lon-indiaGate.Lon) > 1e-9 {
		t.Errorf("fraction 0 = %+v, expected %+v", start, indiaGate)
	}

	end := Intermediate(indiaGate, redFort, 1)
	if math.Abs(end.Lat-redFort.Lat) > 1e-9 || math.Abs(end.Lon-redFort.Lon) > 1e-9 {
		t.Errorf("fraction 1 = %+v, expected %+v", end, redFort)
	}

	mid := Intermediate(indiaGate, redFort, 0.5)
	toMid := HaversineKm(indiaGate, mid)
	fromMid := HaversineKm(mid, redFort)
	if math.Abs(toMid-fromMid) > 1e-6 {
		t.Errorf("midpoint splits the arc into %v and %v, expected equal halves", toMid, fromMid)
	}

	total := HaversineKm(indiaGate, redFort)
	if math.Abs(toMid+fromMid-total) > 1e-6 {
		t.Errorf("midpoint legs sum to %v, expected %v", toMid+fromMid, total)
	}
}

func TestIntermediateCoincidentEndpoints(t *testing.T) {
	got := Intermediate(indiaGate, indiaGate, 0.5)
	if got != indiaGate {
		t.Errorf("Intermediate with coincident endpoints = %+v, expected %+v", got, indiaGate)
	}
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lon   float64
		valid bool
	}{
		{"delhi", 28.6129, 77.2295, true},
		{"null island treated as unset", 0, 0, false},
		{"zero latitude only", 0, 77.2295, true},
		{"zero longitude only", 28.6129, 0, true},
		{"latitude too high", 90.5, 77.2295, false},
		{"latitude too low", -90.5, 77.2295, false},
		{"longitude too high", 28.6129, 180.5, false},
		{"longitude too low", 28.6129, -180.5, false},
		{"poles are valid", -90, 180, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.lat, tt.lon); got != tt.valid {
				t.Errorf("IsValidLatLon(%v, %v) = %v, expected %v", tt.lat, tt.lon, got, tt.valid)
			}
		})
	}
}

func TestBoundingBoxContains(t *testing.T) {
	delhi := BoundingBox{MinLat: 28.40, MaxLat: 28.90, MinLon: 76.84, MaxLon: 77.35}

	if !delhi.Contains(indiaGate.Lat, indiaGate.Lon) {
		t.Error("expected India Gate inside the Delhi box")
	}
	if !delhi.Contains(28.40, 76.84) {
		t.Error("expected the corner itself to be inside the box")
	}
	if delhi.Contains(19.0760, 72.8777) {
		t.Error("expected Mumbai outside the Delhi box")
	}
	if delhi.Contains(28.39, 77.0) {
		t.Error("expected a point just south of the box to be outside")
	}
}

func TestComputeBoundingBox(t *testing.T) {
	box, err := ComputeBoundingBox([]Point{indiaGate, redFort, rajivChowk})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := BoundingBox{
		MinLat: indiaGate.Lat,
		MaxLat: redFort.Lat,
		MinLon: rajivChowk.Lon,
		MaxLon: redFort.Lon,
	}
	if box != want {
		t.Errorf("box = %+v, expected %+v", box, want)
	}
}

func TestComputeBoundingBoxSkipsNaN(t *testing.T) {
	points := []Point{
		{Lat: math.NaN(), Lon: 77.0},
		indiaGate,
		{Lat: 28.5, Lon: math.NaN()},
	}

	box, err := ComputeBoundingBox(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := BoundingBox{
		MinLat: indiaGate.Lat,
		MaxLat: indiaGate.Lat,
		MinLon: indiaGate.Lon,
		MaxLon: indiaGate.Lon,
	}
	if box != want {
		t.Errorf("box = %+v, expected the single valid point %+v", box, want)
	}
}

func TestComputeBoundingBoxErrors(t *testing.T) {
	if _, err := ComputeBoundingBox(nil); err == nil {
		t.Error("expected an error for an empty point set")
	}

	allNaN := []Point{{Lat: math.NaN(), Lon: math.NaN()}}
	if _, err := ComputeBoundingBox(allNaN); err == nil {
		t.Error("expected an error when no point has usable coordinates")
	}
}
