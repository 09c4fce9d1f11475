package shape

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/models"
)

func testShapeService(t *testing.T, baseURL string) *ShapeService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewShapeService(config.RouterConfig{BaseURL: baseURL, TimeoutSeconds: 5},
		"saarthi-test/1.0", logger, &http.Client{})
}

func TestGeometryUsesRouterProfile(t *testing.T) {
	var lastPath atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"code":"Ok","routes":[{"geometry":"`+referencePolyline+`"}]}`)
	}))
	defer ts.Close()

	service := testShapeService(t, ts.URL)

	points := service.Geometry(context.Background(), synthFrom, synthTo, models.StepWalk)
	if len(points) != 3 {
		t.Fatalf("expected the decoded 3-point geometry, got %d points", len(points))
	}
	if points[0] != synthFrom || points[2] != synthTo {
		t.Error("expected the leg endpoints to replace the road-snapped ones")
	}
	if path, _ := lastPath.Load().(string); !strings.Contains(path, "/route/v1/foot/") {
		t.Errorf("expected the foot profile for walking, got %s", path)
	}

	service.Geometry(context.Background(), synthFrom, synthTo, models.StepBus)
	if path, _ := lastPath.Load().(string); !strings.Contains(path, "/route/v1/driving/") {
		t.Errorf("expected the driving profile for bus, got %s", path)
	}
}

func TestGeometryMetroSkipsRouter(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer ts.Close()

	service := testShapeService(t, ts.URL)

	points := service.Geometry(context.Background(), synthFrom, synthTo, models.StepMetro)
	if requests.Load() != 0 {
		t.Error("expected no router call for a metro leg")
	}
	if len(points) < 2 || points[0] != synthFrom || points[len(points)-1] != synthTo {
		t.Errorf("unexpected synthesized geometry %v", points)
	}
}

func TestGeometryFallsBackOnRouterFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	service := testShapeService(t, ts.URL)

	points := service.Geometry(context.Background(), synthFrom, synthTo, models.StepWalk)
	if len(points) < 2 || points[0] != synthFrom || points[len(points)-1] != synthTo {
		t.Errorf("expected a synthesized fallback, got %v", points)
	}
}

func TestGeometryFallsBackOnNoRoute(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"code":"NoRoute","routes":[]}`)
	}))
	defer ts.Close()

	service := testShapeService(t, ts.URL)

	points := service.Geometry(context.Background(), synthFrom, synthTo, models.StepWalk)
	if len(points) < 2 || points[0] != synthFrom || points[len(points)-1] != synthTo {
		t.Errorf("expected a synthesized fallback, got %v", points)
	}
}

func TestGeometryWithoutRouter(t *testing.T) {
	service := testShapeService(t, "")

	points := service.Geometry(context.Background(), synthFrom, synthTo, models.StepBus)
	if len(points) < 2 || points[0] != synthFrom || points[len(points)-1] != synthTo {
		t.Errorf("expected synthesized geometry, got %v", points)
	}
}
