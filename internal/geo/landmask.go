package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// ErrNoPolygons is returned when a land dataset holds no usable polygon.
var ErrNoPolygons = errors.New("land dataset has no polygons")

// AxisOrder selects how GeoJSON coordinate pairs are read.
type AxisOrder int

const (
	// AxisAuto reads (lon, lat) unless the collection declares a
	// latitude-first CRS.
	AxisAuto AxisOrder = iota
	AxisLonLat
	AxisLatLon
)

// latitudeFirst reports whether a named CRS defines latitude as the first axis.
func latitudeFirst(name string) bool {
	switch strings.TrimSpace(name) {
	case "urn:ogc:def:crs:EPSG::4326", "urn:ogc:def:crs:EPSG:6.6:4326":
		return true
	}
	return false
}

// ParseAxisOrder accepts "", "auto", "lonlat" or "latlon".
func ParseAxisOrder(s string) (AxisOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AxisAuto, nil
	case "lonlat", "xy":
		return AxisLonLat, nil
	case "latlon", "yx":
		return AxisLatLon, nil
	default:
		return AxisAuto, fmt.Errorf("unknown axis order %q", s)
	}
}

func (o AxisOrder) String() string {
	switch o {
	case AxisLonLat:
		return "lonlat"
	case AxisLatLon:
		return "latlon"
	default:
		return "auto"
	}
}

type bbox struct {
	minLon, minLat, maxLon, maxLat float64
}

func (b bbox) contains(lat, lon float64) bool {
	return lon >= b.minLon && lon <= b.maxLon && lat >= b.minLat && lat <= b.maxLat
}

// LandMask classifies points as onshore or offshore against a set of land
// polygons held in (lon, lat) order.
type LandMask struct {
	polygons []*geom.Polygon

	once   sync.Once
	boxes  []bbox
	extent bbox
}

// NewLandMask wraps already-built polygons.
func NewLandMask(polygons []*geom.Polygon) (*LandMask, error) {
	if len(polygons) == 0 {
		return nil, ErrNoPolygons
	}
	return &LandMask{polygons: polygons}, nil
}

// DecodeLandMask parses a GeoJSON FeatureCollection, or a single geometry,
// and keeps every Polygon and MultiPolygon it contains.
func DecodeLandMask(data []byte, order AxisOrder) (*LandMask, error) {
	var head struct {
		Type string `json:"type"`
		CRS  *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode land geojson: %w", err)
	}

	swap := order == AxisLatLon
	if order == AxisAuto && head.CRS != nil {
		swap = latitudeFirst(head.CRS.Properties.Name)
	}

	var geometries []*geojson.Geometry
	if head.Type == "FeatureCollection" {
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode land feature collection: %w", err)
		}
		for _, f := range fc.Features {
			if f.Geometry != nil {
				geometries = append(geometries, f.Geometry)
			}
		}
	} else {
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode land geometry: %w", err)
		}
		geometries = append(geometries, g)
	}

	var polygons []*geom.Polygon
	for _, g := range geometries {
		polygons = appendPolygons(polygons, g, swap)
	}
	return NewLandMask(polygons)
}

func appendPolygons(dst []*geom.Polygon, g *geojson.Geometry, swap bool) []*geom.Polygon {
	switch {
	case g.IsPolygon():
		if p := buildPolygon(g.Polygon, swap); p != nil {
			dst = append(dst, p)
		}
	case g.IsMultiPolygon():
		for _, rings := range g.MultiPolygon {
			if p := buildPolygon(rings, swap); p != nil {
				dst = append(dst, p)
			}
		}
	case g.IsCollection():
		for _, child := range g.Geometries {
			dst = appendPolygons(dst, child, swap)
		}
	}
	return dst
}

// buildPolygon converts GeoJSON rings to a flat XY polygon, closing open
// rings. A polygon whose exterior ring is degenerate is dropped, as are
// degenerate holes.
func buildPolygon(rings [][][]float64, swap bool) *geom.Polygon {
	var flat []float64
	var ends []int
	for i, ring := range rings {
		coords := ringCoords(ring, swap)
		if len(coords) < 8 {
			if i == 0 {
				return nil
			}
			continue
		}
		flat = append(flat, coords...)
		ends = append(ends, len(flat))
	}
	if len(ends) == 0 {
		return nil
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

func ringCoords(ring [][]float64, swap bool) []float64 {
	out := make([]float64, 0, 2*(len(ring)+1))
	for _, pos := range ring {
		if len(pos) < 2 {
			continue
		}
		x, y := pos[0], pos[1]
		if swap {
			x, y = y, x
		}
		out = append(out, x, y)
	}
	n := len(out)
	if n >= 2 && (out[0] != out[n-2] || out[1] != out[n-1]) {
		out = append(out, out[0], out[1])
	}
	return out
}

// Len returns the number of land polygons.
func (m *LandMask) Len() int { return len(m.polygons) }

func (m *LandMask) buildIndex() {
	m.boxes = make([]bbox, len(m.polygons))
	for i, p := range m.polygons {
		b := p.Bounds()
		m.boxes[i] = bbox{minLon: b.Min(0), minLat: b.Min(1), maxLon: b.Max(0), maxLat: b.Max(1)}
		if i == 0 {
			m.extent = m.boxes[i]
			continue
		}
		m.extent.minLon = min(m.extent.minLon, m.boxes[i].minLon)
		m.extent.minLat = min(m.extent.minLat, m.boxes[i].minLat)
		m.extent.maxLon = max(m.extent.maxLon, m.boxes[i].maxLon)
		m.extent.maxLat = max(m.extent.maxLat, m.boxes[i].maxLat)
	}
}

// IsOffshore reports whether the point lies outside every land polygon.
// Points on a polygon boundary are onshore.
func (m *LandMask) IsOffshore(lat, lon float64) bool {
	m.once.Do(m.buildIndex)
	if !m.extent.contains(lat, lon) {
		return true
	}
	c := geom.Coord{lon, lat}
	for i, p := range m.polygons {
		if !m.boxes[i].contains(lat, lon) {
			continue
		}
		if onLand(p, c) {
			return false
		}
	}
	return true
}

func onLand(p *geom.Polygon, c geom.Coord) bool {
	switch xy.LocatePointInRing(geom.XY, c, p.LinearRing(0).FlatCoords()) {
	case location.Exterior:
		return false
	case location.Boundary:
		return true
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.LocatePointInRing(geom.XY, c, p.LinearRing(i).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}
