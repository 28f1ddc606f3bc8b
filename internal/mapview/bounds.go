package mapview

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/siteopt/internal/model"
)

// Padding is the pixel inset applied when fitting bounds, as [x, y].
type Padding [2]int

// DefaultPadding matches the map's fitBounds inset.
var DefaultPadding = Padding{50, 50}

// Initial view used before any points have been rendered (Manila).
var (
	DefaultCenter = model.LatLng{Lat: 14.5825, Lon: 120.9784}
	DefaultZoom   = 10
)

// Bounds is a lat/lon rectangle.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() model.LatLng {
	return model.LatLng{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// Contains reports whether p lies inside or on the edge of b.
func (b Bounds) Contains(p model.LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lon >= b.West && p.Lon <= b.East
}

// Viewport is what the renderer fits the map to.
type Viewport struct {
	Bounds  Bounds  `json:"bounds"`
	Padding Padding `json:"padding"`
}

// Compute returns the smallest rectangle enclosing points, to be rendered with
// padding. It returns false for an empty point set, meaning the current view
// should be left unchanged. Longitudes are compared numerically, so a point
// set straddling the antimeridian yields a box spanning most of the globe.
func Compute(points []model.LatLng, padding Padding) (Viewport, bool) {
	if len(points) == 0 {
		return Viewport{}, false
	}

	coords := make([]geom.Coord, len(points))
	for i, p := range points {
		coords[i] = geom.Coord{p.Lon, p.Lat}
	}
	b := geom.NewMultiPoint(geom.XY).MustSetCoords(coords).Bounds()

	for i := range padding {
		if padding[i] < 0 {
			padding[i] = 0
		}
	}

	return Viewport{
		Bounds: Bounds{
			South: b.Min(1),
			West:  b.Min(0),
			North: b.Max(1),
			East:  b.Max(0),
		},
		Padding: padding,
	}, true
}

// Points collects the coordinates of every rendered site and unit.
func Points(sites []model.Site, units []model.Unit) []model.LatLng {
	points := make([]model.LatLng, 0, len(sites)+len(units))
	for _, s := range sites {
		points = append(points, s.Coordinates)
	}
	for _, u := range units {
		points = append(points, u.Coordinates)
	}
	return points
}

// Tracker remembers the last fitted point set so the map is only refit when
// the rendered coordinates actually change.
type Tracker struct {
	padding Padding
	last    []model.LatLng
	view    *Viewport
}

// NewTracker returns a Tracker that has not fitted anything yet.
func NewTracker(padding Padding) *Tracker {
	return &Tracker{padding: padding}
}

// Update recomputes the viewport if points differ from the previous call.
// It reports whether the caller should refit the map. An empty point set
// never refits and keeps the previous viewport as Current.
func (t *Tracker) Update(points []model.LatLng) (Viewport, bool) {
	if t.view != nil && samePoints(t.last, points) {
		return *t.view, false
	}
	t.last = append(t.last[:0], points...)

	vp, ok := Compute(points, t.padding)
	if !ok {
		return Viewport{}, false
	}
	t.view = &vp
	return vp, true
}

// Current returns the last fitted viewport, if any.
func (t *Tracker) Current() (Viewport, bool) {
	if t.view == nil {
		return Viewport{}, false
	}
	return *t.view, true
}

// InitialView is the center and zoom to use before the first fit.
func (t *Tracker) InitialView() (model.LatLng, int) {
	return DefaultCenter, DefaultZoom
}

func samePoints(a, b []model.LatLng) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
