// Package geofence decides whether a position lies inside the admissible region.
//
// The region is a single closed ring of [lon, lat] vertices. Points lying exactly on
// an edge or a vertex count as inside.
package geofence

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// boundaryTolerance absorbs float noise when testing whether a point sits on an edge.
const boundaryTolerance = 1e-12

var (
	// ErrInvalidRing is returned for rings with fewer than three distinct vertices
	// or with coordinates outside WGS84 bounds.
	ErrInvalidRing = errors.New("geofence ring needs at least three distinct valid vertices")
	// ErrUnsupportedGeometry is returned when a GeoJSON document holds no polygon.
	ErrUnsupportedGeometry = errors.New("geofence geojson must contain a Polygon")
)

// Evaluator answers point-in-polygon queries against an immutable ring.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	polygon orb.Polygon
	bound   orb.Bound
}

// New builds an evaluator for the ring. The ring is closed when its last vertex
// differs from the first.
func New(ring orb.Ring) (*Evaluator, error) {
	if len(ring) == 0 {
		return nil, ErrInvalidRing
	}

	closed := make(orb.Ring, len(ring), len(ring)+1)
	copy(closed, ring)
	if !closed.Closed() {
		closed = append(closed, closed[0])
	}

	distinct := make(map[orb.Point]struct{}, len(closed))
	for _, p := range closed {
		if !ValidCoordinate(p.Lat(), p.Lon()) {
			return nil, errors.Wrapf(ErrInvalidRing, "vertex %v", p)
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, ErrInvalidRing
	}

	polygon := orb.Polygon{closed}

	return &Evaluator{polygon: polygon, bound: polygon.Bound()}, nil
}

// FromCoordinates builds an evaluator from [lon, lat] pairs as found in configuration.
func FromCoordinates(coords [][]float64) (*Evaluator, error) {
	ring := make(orb.Ring, 0, len(coords))
	for i, c := range coords {
		if len(c) != 2 {
			return nil, errors.Errorf("geofence vertex %d must be a [lon, lat] pair", i)
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}

	return New(ring)
}

// FromGeoJSON builds an evaluator from a GeoJSON Polygon geometry, a Feature holding
// one, or a FeatureCollection whose first polygon feature is used. Holes are ignored.
func FromGeoJSON(data []byte) (*Evaluator, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(err, "decode geofence geojson")
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, errors.Wrap(err, "decode geofence feature")
		}
		geometries = append(geometries, f.Geometry)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, errors.Wrap(err, "decode geofence feature collection")
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, errors.Wrap(err, "decode geofence geometry")
		}
		geometries = append(geometries, g.Geometry())
	}

	for _, g := range geometries {
		if polygon, ok := g.(orb.Polygon); ok && len(polygon) > 0 {
			return New(polygon[0])
		}
	}

	return nil, ErrUnsupportedGeometry
}

// Contains reports whether (lat, lon) lies inside the ring or on its boundary.
// Non-finite or out of range coordinates are never contained.
func (e *Evaluator) Contains(lat, lon float64) bool {
	if !ValidCoordinate(lat, lon) {
		return false
	}

	point := orb.Point{lon, lat}
	if !e.bound.Contains(point) {
		return false
	}
	if e.onBoundary(point) {
		return true
	}

	return planar.PolygonContains(e.polygon, point)
}

func (e *Evaluator) onBoundary(point orb.Point) bool {
	ring := e.polygon[0]
	for i := 0; i < len(ring)-1; i++ {
		if planar.DistanceFromSegmentSquared(ring[i], ring[i+1], point) <= boundaryTolerance*boundaryTolerance {
			return true
		}
	}

	return false
}

// Ring returns a copy of the closed ring.
func (e *Evaluator) Ring() orb.Ring {
	return e.polygon[0].Clone()
}

// Bound returns the ring's bounding box.
func (e *Evaluator) Bound() orb.Bound {
	return e.bound
}

// Feature exports the region as a GeoJSON feature for renderers.
func (e *Evaluator) Feature() *geojson.Feature {
	f := geojson.NewFeature(e.polygon.Clone())
	f.Properties["name"] = "geofence"
	f.Properties["area"] = planar.Area(e.polygon)

	return f
}

// ValidCoordinate reports whether lat and lon are finite WGS84 degrees.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}

	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
