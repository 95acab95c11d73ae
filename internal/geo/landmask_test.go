package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A square island from 30E to 32E and 38N to 40N with a lake from 30.5E to
// 31.5E and 38.5N to 39.5N, plus a second island further east.
const islandsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "main"}, "geometry": {
      "type": "Polygon",
      "coordinates": [
        [[30, 38], [32, 38], [32, 40], [30, 40], [30, 38]],
        [[30.5, 38.5], [31.5, 38.5], [31.5, 39.5], [30.5, 39.5], [30.5, 38.5]]
      ]
    }},
    {"type": "Feature", "properties": {"name": "east"}, "geometry": {
      "type": "MultiPolygon",
      "coordinates": [
        [[[40, 38], [41, 38], [41, 39], [40, 39], [40, 38]]],
        [[[42, 38], [43, 38], [42.5, 39]]]
      ]
    }},
    {"type": "Feature", "properties": {"name": "lighthouse"}, "geometry": {
      "type": "Point", "coordinates": [35, 36]
    }}
  ]
}`

func TestDecodeLandMask(t *testing.T) {
	mask, err := DecodeLandMask([]byte(islandsGeoJSON), AxisAuto)
	require.NoError(t, err)
	assert.Equal(t, 3, mask.Len())

	tests := []struct {
		name     string
		lat, lon float64
		offshore bool
	}{
		{"interior", 38.2, 30.2, false},
		{"inside lake", 39.0, 31.0, true},
		{"on lake shore", 38.5, 31.0, false},
		{"on outer edge", 38.0, 31.0, false},
		{"on corner", 40.0, 30.0, false},
		{"open sea", 37.0, 35.0, true},
		{"outside all extents", 10.0, 10.0, true},
		{"multipolygon square", 38.5, 40.5, false},
		{"unclosed triangle", 38.3, 42.5, false},
		{"between islands", 38.5, 41.5, true},
		{"point feature is not land", 36.0, 35.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offshore, mask.IsOffshore(tt.lat, tt.lon))
		})
	}
}

const latLonGeoJSON = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::4326"}},
  "features": [
    {"type": "Feature", "properties": {}, "geometry": {
      "type": "Polygon",
      "coordinates": [[[38, 30], [38, 32], [40, 32], [40, 30], [38, 30]]]
    }}
  ]
}`

func TestDecodeLandMask_AxisOrder(t *testing.T) {
	t.Run("declared lat/lon CRS is swapped", func(t *testing.T) {
		mask, err := DecodeLandMask([]byte(latLonGeoJSON), AxisAuto)
		require.NoError(t, err)
		assert.False(t, mask.IsOffshore(39, 31))
	})

	t.Run("explicit lonlat overrides the CRS", func(t *testing.T) {
		mask, err := DecodeLandMask([]byte(latLonGeoJSON), AxisLonLat)
		require.NoError(t, err)
		assert.True(t, mask.IsOffshore(39, 31))
		assert.False(t, mask.IsOffshore(31, 39))
	})

	t.Run("explicit latlon without CRS", func(t *testing.T) {
		mask, err := DecodeLandMask([]byte(islandsGeoJSON), AxisLatLon)
		require.NoError(t, err)
		assert.False(t, mask.IsOffshore(30.2, 38.2))
	})
}

func TestDecodeLandMask_BareGeometry(t *testing.T) {
	data := []byte(`{"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]}`)
	mask, err := DecodeLandMask(data, AxisAuto)
	require.NoError(t, err)
	assert.False(t, mask.IsOffshore(0.5, 0.5))
	assert.True(t, mask.IsOffshore(1.5, 0.5))
}

func TestDecodeLandMask_GeometryCollection(t *testing.T) {
	data := []byte(`{"type": "GeometryCollection", "geometries": [
		{"type": "Point", "coordinates": [5, 5]},
		{"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]}
	]}`)
	mask, err := DecodeLandMask(data, AxisAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, mask.Len())
}

func TestDecodeLandMask_Errors(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		isNoPolygons bool
	}{
		{name: "not json", input: "{"},
		{name: "no polygons", input: `{"type": "FeatureCollection", "features": []}`, isNoPolygons: true},
		{name: "only points", input: `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1, 2]}}]}`, isNoPolygons: true},
		{name: "degenerate ring", input: `{"type": "Polygon", "coordinates": [[[0, 0], [1, 1]]]}`, isNoPolygons: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeLandMask([]byte(tt.input), AxisAuto)
			require.Error(t, err)
			assert.Equal(t, tt.isNoPolygons, errors.Is(err, ErrNoPolygons))
		})
	}
}

func TestNewLandMask_Empty(t *testing.T) {
	_, err := NewLandMask(nil)
	assert.True(t, errors.Is(err, ErrNoPolygons))
}

func TestParseAxisOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    AxisOrder
		wantErr bool
	}{
		{"", AxisAuto, false},
		{"auto", AxisAuto, false},
		{"LONLAT", AxisLonLat, false},
		{"latlon", AxisLatLon, false},
		{"sideways", AxisAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAxisOrder(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
}
