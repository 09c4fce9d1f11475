// Package planner turns a geocoded origin and destination into ranked
// multi-leg transit routes: a walking leg to a candidate station, one or
// two transit legs, and a walking leg to the destination.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"saarthi.opentransit.in/internal/config"
	"saarthi.opentransit.in/internal/geo"
	"saarthi.opentransit.in/internal/lines"
	"saarthi.opentransit.in/internal/metrics"
	"saarthi.opentransit.in/internal/models"
	"saarthi.opentransit.in/internal/snapshot"
	"saarthi.opentransit.in/internal/utils"
)

// StationSource is the station search the planner fans out to, one call
// per endpoint. Implementations degrade to an empty slice on upstream
// failure rather than returning an error.
type StationSource interface {
	FetchNearOrEmpty(ctx context.Context, point geo.Point, radiusMeters int, limit int) []models.Station
}

// Planner generates candidate routes between two resolved locations.
// Lines and Snapshot are optional; without them the connectivity
// heuristics stand alone and no interchange variants are emitted.
type Planner struct {
	Logger   *slog.Logger
	Config   *config.Config
	Source   StationSource
	Lines    *lines.Store
	Snapshot *snapshot.Store
}

func NewPlanner(cfg *config.Config, logger *slog.Logger, source StationSource, lineStore *lines.Store, snapshotStore *snapshot.Store) *Planner {
	return &Planner{
		Logger:   logger,
		Config:   cfg,
		Source:   source,
		Lines:    lineStore,
		Snapshot: snapshotStore,
	}
}

// Generate builds ranked candidate routes from origin to destination. It
// never fails: upstream degradation shrinks the candidate sets, and the
// worst case is an empty list.
func (p *Planner) Generate(ctx context.Context, origin, destination models.NamedLocation) []models.Route {
	cfg := p.Config.Planner
	direct := geo.HaversineKm(origin.Location, destination.Location)
	radiusKm := utils.Clamp(direct*cfg.RadiusFactor, cfg.MinRadiusKm, cfg.MaxRadiusKm)
	radiusMeters := int(radiusKm * 1000)

	// Both endpoint fetches run concurrently and join positionally. The
	// limit stays 0 here: the metro preference below needs the full set
	// and the source caches the untruncated result anyway.
	var originStations, destinationStations []models.Station
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		originStations = p.Source.FetchNearOrEmpty(gctx, origin.Location, radiusMeters, 0)
		return gctx.Err()
	})
	g.Go(func() error {
		destinationStations = p.Source.FetchNearOrEmpty(gctx, destination.Location, radiusMeters, 0)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		p.Logger.Warn("Candidate station fetch interrupted", "error", err)
	}

	originCandidates := selectCandidates(originStations, cfg.MaxCandidates)
	destinationCandidates := selectCandidates(destinationStations, cfg.MaxCandidates)

	// Always a non-nil slice; handlers marshal it as [] rather than null.
	routes := []models.Route{}
	topo := p.topology()
	for _, a := range originCandidates {
		for _, b := range destinationCandidates {
			if a.ID == b.ID {
				continue
			}
			transitKm := geo.HaversineKm(a.Location, b.Location)
			if transitKm > direct*cfg.TransitDistanceFactor {
				continue
			}
			verdict := classifyPair(a, b, transitKm, topo, cfg)
			if !verdict.ok {
				continue
			}

			routes = append(routes, p.assembleDirect(origin, destination, a, b, verdict))
			if verdict.via != "" && a.Type == models.StationTypeMetro && b.Type == models.StationTypeMetro {
				if variant, ok := p.assembleInterchange(origin, destination, a, b, verdict); ok {
					routes = append(routes, variant)
				}
			}
		}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].DurationMinutes < routes[j].DurationMinutes
	})
	for i := range routes {
		routes[i].ID = fmt.Sprintf("route-%d", i+1)
	}

	metrics.RoutesGenerated.Add(float64(len(routes)))
	return routes
}

func (p *Planner) topology() *lines.Topology {
	if p.Lines == nil {
		return nil
	}
	return p.Lines.Topology()
}

// selectCandidates applies the per-endpoint preference: metro stations
// when any are in range, bus stations otherwise. Input arrives sorted by
// distance; the cap keeps the pairing cross-product small.
func selectCandidates(stations []models.Station, max int) []models.Station {
	var metro, bus []models.Station
	for _, station := range stations {
		switch station.Type {
		case models.StationTypeMetro:
			metro = append(metro, station)
		case models.StationTypeBus:
			bus = append(bus, station)
		}
	}
	picked := metro
	if len(picked) == 0 {
		picked = bus
	}
	if max > 0 && len(picked) > max {
		picked = picked[:max]
	}
	return picked
}

// assembleDirect builds the 3-leg walk, transit, walk route for a pair.
func (p *Planner) assembleDirect(origin, destination models.NamedLocation, a, b models.Station, verdict pairing) models.Route {
	steps := []models.RouteStep{
		walkStep(origin.Name, a.Name, origin.Location, a.Location),
		transitStep(a, b, verdict.line, verdict.sameLine),
		walkStep(b.Name, destination.Name, b.Location, destination.Location),
	}
	return models.NewRoute("", steps)
}

// assembleInterchange splits a metro pair with a known line change into
// two same-line legs through the interchange station. The interchange
// coordinate comes from the snapshot; without it the variant is skipped.
func (p *Planner) assembleInterchange(origin, destination models.NamedLocation, a, b models.Station, verdict pairing) (models.Route, bool) {
	if p.Snapshot == nil {
		return models.Route{}, false
	}
	via, ok := p.Snapshot.FindByName(models.StationTypeMetro, verdict.via)
	if !ok {
		return models.Route{}, false
	}

	steps := []models.RouteStep{
		walkStep(origin.Name, a.Name, origin.Location, a.Location),
		transitStep(a, via, verdict.lineA, true),
		transitStep(via, b, verdict.lineB, true),
		walkStep(b.Name, destination.Name, b.Location, destination.Location),
	}
	return models.NewRoute("", steps), true
}
