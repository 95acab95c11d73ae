package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// ErrEmptyIndex is returned by NearestTo when no settlements were loaded.
var ErrEmptyIndex = errors.New("settlement index is empty")

const (
	defaultCellSizeKm = 50.0
	// Half the Earth's circumference; no two points are further apart.
	maxSearchKm = math.Pi * EarthRadiusKm
	// Widens candidate boxes so float rounding never excludes a point on the edge.
	boxPadDeg = 1e-6
)

type cellKey struct {
	X, Y int
}

// SettlementIndex answers nearest-settlement and radius queries over a fixed
// set of settlements. Settlements are bucketed into a grid of square cells
// in degree space; queries only visit cells overlapping a box that contains
// the search circle and fall back to a linear scan when that box is not
// representable (poles, antimeridian) or would visit more cells than there
// are settlements. Results are identical to a brute-force scan.
type SettlementIndex struct {
	settlements []domain.Settlement
	cells       map[cellKey][]int
	cellDeg     float64
	cellKm      float64

	affected domain.FeatureSet
	country  string
}

// IndexOption configures a SettlementIndex.
type IndexOption func(*SettlementIndex)

// WithAffectedFeatures restricts WithinRadius to the given tiers.
func WithAffectedFeatures(fs domain.FeatureSet) IndexOption {
	return func(idx *SettlementIndex) { idx.affected = fs }
}

// WithCountry restricts WithinRadius to settlements of one ISO-3166 country.
// An empty code disables the filter.
func WithCountry(code string) IndexOption {
	return func(idx *SettlementIndex) { idx.country = strings.TrimSpace(code) }
}

// WithCellSizeKm sets the approximate grid cell edge length.
func WithCellSizeKm(km float64) IndexOption {
	return func(idx *SettlementIndex) {
		if km > 0 {
			idx.cellKm = km
		}
	}
}

// NewSettlementIndex builds an index over settlements. The slice is copied.
func NewSettlementIndex(settlements []domain.Settlement, opts ...IndexOption) *SettlementIndex {
	idx := &SettlementIndex{
		settlements: append([]domain.Settlement(nil), settlements...),
		cellKm:      defaultCellSizeKm,
		affected:    domain.DefaultAffectedFeatures,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.cellDeg = idx.cellKm / (EarthRadiusKm * degToRad)

	idx.cells = make(map[cellKey][]int)
	for i, s := range idx.settlements {
		k := idx.cellFor(s.Lat, s.Lon)
		idx.cells[k] = append(idx.cells[k], i)
	}
	return idx
}

// Len returns the number of indexed settlements.
func (idx *SettlementIndex) Len() int { return len(idx.settlements) }

func (idx *SettlementIndex) cellFor(lat, lon float64) cellKey {
	return cellKey{
		X: int(math.Floor(lon / idx.cellDeg)),
		Y: int(math.Floor(lat / idx.cellDeg)),
	}
}

// NearestTo returns the closest settlement's name and its distance in km.
func (idx *SettlementIndex) NearestTo(lat, lon float64) (string, float64, error) {
	if len(idx.settlements) == 0 {
		return "", 0, ErrEmptyIndex
	}
	if !validPoint(lat, lon) {
		return "", 0, fmt.Errorf("invalid point %v,%v", lat, lon)
	}

	for r := idx.cellKm; r < maxSearchKm; r *= 2 {
		candidates, ok := idx.candidates(lat, lon, r)
		if !ok {
			break
		}
		best, bestDist := nearestOf(idx.settlements, candidates, lat, lon)
		// Anything outside the box is further than r, so a hit within r is final.
		if best >= 0 && bestDist <= r {
			return idx.settlements[best].Name, bestDist, nil
		}
	}

	best, bestDist := idx.linearNearest(lat, lon)
	return idx.settlements[best].Name, bestDist, nil
}

// WithinRadius returns the sorted, de-duplicated names of affected-tier
// settlements whose centre lies within radiusKm of the point.
func (idx *SettlementIndex) WithinRadius(lat, lon, radiusKm float64) []string {
	names := []string{}
	if radiusKm <= 0 || math.IsNaN(radiusKm) || len(idx.settlements) == 0 || !validPoint(lat, lon) {
		return names
	}

	candidates, ok := idx.candidates(lat, lon, radiusKm)
	if !ok {
		candidates = make([]int, len(idx.settlements))
		for i := range candidates {
			candidates[i] = i
		}
	}

	seen := make(map[string]struct{})
	for _, i := range candidates {
		s := idx.settlements[i]
		if !idx.isAffectedTier(s) {
			continue
		}
		if Haversine(lat, lon, s.Lat, s.Lon) > radiusKm {
			continue
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func (idx *SettlementIndex) isAffectedTier(s domain.Settlement) bool {
	if !idx.affected.Contains(s.FeatureCode) {
		return false
	}
	return idx.country == "" || strings.EqualFold(s.CountryCode, idx.country)
}

// candidates returns the indices of settlements in cells overlapping the
// lat/lon box that contains the circle of radiusKm around the point. ok is
// false when a linear scan should be used instead.
func (idx *SettlementIndex) candidates(lat, lon, radiusKm float64) ([]int, bool) {
	delta := radiusKm / EarthRadiusKm
	dLat := delta/degToRad + boxPadDeg
	if lat+dLat >= 90 || lat-dLat <= -90 {
		return nil, false
	}

	// Widest longitude extent of a spherical cap of angular radius delta.
	sinRatio := math.Sin(delta) / math.Cos(lat*degToRad)
	if sinRatio >= 1 {
		return nil, false
	}
	dLon := math.Asin(sinRatio)/degToRad + boxPadDeg
	if lon+dLon > 180 || lon-dLon < -180 {
		return nil, false
	}

	lo := idx.cellFor(lat-dLat, lon-dLon)
	hi := idx.cellFor(lat+dLat, lon+dLon)
	if (hi.X-lo.X+1)*(hi.Y-lo.Y+1) > len(idx.settlements) {
		return nil, false
	}

	var out []int
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			out = append(out, idx.cells[cellKey{X: x, Y: y}]...)
		}
	}
	return out, true
}

func (idx *SettlementIndex) linearNearest(lat, lon float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, s := range idx.settlements {
		if d := Haversine(lat, lon, s.Lat, s.Lon); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// nearestOf picks the closest candidate, breaking ties on the lower index
// so the choice matches a linear scan.
func nearestOf(settlements []domain.Settlement, candidates []int, lat, lon float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for _, i := range candidates {
		s := settlements[i]
		d := Haversine(lat, lon, s.Lat, s.Lon)
		if d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func validPoint(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
