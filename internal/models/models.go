package models

import (
	"saarthi.opentransit.in/internal/geo"
)

// StationType classifies a transit station by the mode it serves.
type StationType string

const (
	StationTypeMetro StationType = "metro"
	StationTypeBus   StationType = "bus"
)

// UnknownCity is the city value assigned to stations whose metropolitan
// area could not be determined from tags or the configured city table.
const UnknownCity = "unknown"

// UnknownNetwork is the network value assigned to stations that carry no
// network tag.
const UnknownNetwork = "unknown"

// Station is an immutable value record for one transit station, created
// fresh from a provider element on every fetch. DistanceKm is contextual:
// it is populated relative to the query point of the request that produced
// the record and has no meaning outside that request.
type Station struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       StationType       `json:"type"`
	City       string            `json:"city"`
	Network    string            `json:"network"`
	Location   geo.Point         `json:"location"`
	DistanceKm float64           `json:"distanceKm,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// NamedLocation pairs a resolved place name with its coordinate.
type NamedLocation struct {
	Name     string    `json:"name"`
	Location geo.Point `json:"location"`
}

// StepType identifies the travel mode of a single route leg.
type StepType string

const (
	StepWalk  StepType = "walk"
	StepMetro StepType = "metro"
	StepBus   StepType = "bus"
)

// RouteStep is one mode-homogeneous leg of a route. The first and last
// step of every generated route are walking legs.
type RouteStep struct {
	Type            StepType    `json:"type"`
	From            string      `json:"from"`
	To              string      `json:"to"`
	DurationMinutes int         `json:"durationMinutes"`
	DistanceKm      float64     `json:"distanceKm"`
	Instructions    string      `json:"instructions,omitempty"`
	Location        *geo.Point  `json:"location,omitempty"`
	Geometry        []geo.Point `json:"geometry,omitempty"`
}

// Route is an ordered sequence of steps. DurationMinutes always equals the
// sum of the step durations; the generator enforces this when it assembles
// a route and tests rely on it.
type Route struct {
	ID              string      `json:"id"`
	DurationMinutes int         `json:"durationMinutes"`
	Steps           []RouteStep `json:"steps"`
}

// NewRoute assembles a Route from its steps, computing the total duration.
func NewRoute(id string, steps []RouteStep) Route {
	total := 0
	for _, step := range steps {
		total += step.DurationMinutes
	}
	return Route{
		ID:              id,
		DurationMinutes: total,
		Steps:           steps,
	}
}

// Line is the ordered station membership of one transit line, used for
// same-line and interchange checks and for the persisted network snapshot.
type Line struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Network  string   `json:"network"`
	Stations []string `json:"stations"`
}
