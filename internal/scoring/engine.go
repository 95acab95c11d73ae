package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// ErrNonFiniteScore means the inputs produced an infinite or NaN score,
// which cannot be persisted.
var ErrNonFiniteScore = errors.New("score is not finite")

// OffshoreFactor damps the score of events whose epicentre is at sea.
const OffshoreFactor = 0.85

// SettlementLocator is implemented by geo.SettlementIndex.
type SettlementLocator interface {
	NearestTo(lat, lon float64) (string, float64, error)
	WithinRadius(lat, lon, radiusKm float64) []string
}

// OffshoreChecker is implemented by geo.LandMask.
type OffshoreChecker interface {
	IsOffshore(lat, lon float64) bool
}

// Score is S together with the intermediate quantities it was derived from.
type Score struct {
	Magnitude      float64
	DepthKm        float64
	NearestName    string
	DistanceKm     float64 // epicentre to nearest settlement
	HypocentralKm  float64 // Rv
	EffectiveKm    float64 // R*
	Beta           float64
	A7             float64
	Offshore       bool
	OffshoreFactor float64
	S              float64
}

// Engine scores events against shared, read-only reference data.
type Engine struct {
	settlements SettlementLocator
	land        OffshoreChecker
	model       AttenuationModel
	ttl         TTLCurve
}

// NewEngine builds a scoring engine. The reference data must not change
// while the engine is in use.
func NewEngine(settlements SettlementLocator, land OffshoreChecker, model AttenuationModel, ttl TTLCurve) *Engine {
	return &Engine{settlements: settlements, land: land, model: model, ttl: ttl}
}

// TTL returns the lifetime curve in use.
func (e *Engine) TTL() TTLCurve { return e.ttl }

// Score computes S for an event. It fails with domain.ErrMissingMagnitude
// when the event has neither Mw nor ML, and with the locator's error when no
// nearest settlement can be found. A non-finite S fails with
// ErrNonFiniteScore.
func (e *Engine) Score(ev domain.SeismicEvent) (Score, error) {
	mag, err := ev.PreferredMagnitude()
	if err != nil {
		return Score{}, err
	}

	name, dist, err := e.settlements.NearestTo(ev.Lat, ev.Lon)
	if err != nil {
		return Score{}, fmt.Errorf("nearest settlement: %w", err)
	}

	rv := math.Hypot(dist, ev.DepthKm)
	beta, a7 := e.model.CoefficientsFor(mag)
	rStar := math.Hypot(rv, a7)

	offshore := e.land.IsOffshore(ev.Lat, ev.Lon)
	o := 1.0
	if offshore {
		o = OffshoreFactor
	}

	s := (mag - beta*math.Log10(rStar+1)) * o
	if math.IsInf(s, 0) || math.IsNaN(s) {
		return Score{}, fmt.Errorf("%w: %v (magnitude %v, depth %v km)", ErrNonFiniteScore, s, mag, ev.DepthKm)
	}

	return Score{
		Magnitude:      mag,
		DepthKm:        ev.DepthKm,
		NearestName:    name,
		DistanceKm:     dist,
		HypocentralKm:  rv,
		EffectiveKm:    rStar,
		Beta:           beta,
		A7:             a7,
		Offshore:       offshore,
		OffshoreFactor: o,
		S:              s,
	}, nil
}

// DangerRadiusKm returns the epicentral radius inside which S stays above
// DangerThreshold for the scored event.
func (e *Engine) DangerRadiusKm(sc Score) float64 {
	return SolveDangerRadius(sc.Magnitude, sc.DepthKm, sc.Beta, sc.A7, sc.OffshoreFactor)
}

// Assess scores the event and derives its lifetime, danger radius and the
// settlements inside that radius.
func (e *Engine) Assess(ev domain.SeismicEvent) (domain.Assessment, error) {
	sc, err := e.Score(ev)
	if err != nil {
		return domain.Assessment{}, err
	}
	radius := e.DangerRadiusKm(sc)

	return domain.Assessment{
		Magnitude:                   sc.Magnitude,
		IsOffshore:                  sc.Offshore,
		NearestSettlementName:       sc.NearestName,
		NearestSettlementDistanceKm: sc.DistanceKm,
		S:                           sc.S,
		TTLSeconds:                  e.ttl.Seconds(sc.S),
		TTLEpochSeconds:             e.ttl.ExpiresAt(ev.Origin, sc.S),
		DangerRadiusKm:              radius,
		PossiblyAffected:            e.settlements.WithinRadius(ev.Lat, ev.Lon, radius),
	}, nil
}
