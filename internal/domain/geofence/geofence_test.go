package geofence

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gulfRing = [][]float64{
	{-96.0, 25.0},
	{-92.5, 28.0},
	{-95.5, 30.0},
	{-97.0, 32.0},
	{-100.0, 31.0},
	{-100.0, 29.0},
	{-96.0, 25.0},
}

func newGulfEvaluator(t *testing.T) *Evaluator {
	t.Helper()

	e, err := FromCoordinates(gulfRing)
	require.NoError(t, err)

	return e
}

func TestEvaluator_Contains(t *testing.T) {
	e := newGulfEvaluator(t)

	tests := []struct {
		name string
		lat  float64
		lon  float64
		want bool
	}{
		{name: "interior point", lat: 29.0, lon: -97.0, want: true},
		{name: "far east point", lat: 29.0, lon: -70.0, want: false},
		{name: "inside bounding box but outside ring", lat: 25.5, lon: -99.5, want: false},
		{name: "vertex counts as inside", lat: 25.0, lon: -96.0, want: true},
		{name: "vertical edge counts as inside", lat: 30.0, lon: -100.0, want: true},
		{name: "just west of vertical edge", lat: 30.0, lon: -100.000001, want: false},
		{name: "NaN latitude", lat: math.NaN(), lon: -97.0, want: false},
		{name: "infinite longitude", lat: 29.0, lon: math.Inf(-1), want: false},
		{name: "latitude out of range", lat: 91.0, lon: -97.0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Contains(tt.lat, tt.lon))
		})
	}
}

func TestEvaluator_BoundaryRuleIsStable(t *testing.T) {
	e := newGulfEvaluator(t)

	for _, v := range gulfRing {
		assert.True(t, e.Contains(v[1], v[0]), "vertex %v", v)
	}
}

func TestNew_ClosesOpenRing(t *testing.T) {
	e, err := New(orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	require.NoError(t, err)

	ring := e.Ring()
	assert.Len(t, ring, 5)
	assert.True(t, ring.Closed())
	assert.True(t, e.Contains(0.5, 0.5))
}

func TestNew_RejectsDegenerateRings(t *testing.T) {
	tests := []struct {
		name string
		ring orb.Ring
	}{
		{name: "empty", ring: orb.Ring{}},
		{name: "two distinct points", ring: orb.Ring{{0, 0}, {1, 1}, {0, 0}}},
		{name: "vertex out of range", ring: orb.Ring{{0, 0}, {200, 0}, {1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.ring)
			assert.ErrorIs(t, err, ErrInvalidRing)
		})
	}
}

func TestFromGeoJSON(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name: "bare polygon",
			doc:  `{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}`,
		},
		{
			name: "feature",
			doc:  `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}`,
		},
		{
			name: "feature collection skips non polygons",
			doc: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[5,5]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}
			]}`,
		},
		{
			name:    "point only",
			doc:     `{"type":"Point","coordinates":[1,1]}`,
			wantErr: ErrUnsupportedGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := FromGeoJSON([]byte(tt.doc))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.True(t, e.Contains(1, 1))
			assert.False(t, e.Contains(3, 3))
		})
	}
}

func TestEvaluator_Feature(t *testing.T) {
	e := newGulfEvaluator(t)

	f := e.Feature()
	polygon, ok := f.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, e.Ring(), polygon[0])
	assert.Equal(t, "geofence", f.Properties["name"])
}
