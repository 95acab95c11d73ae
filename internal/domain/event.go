package domain

import "time"

// FatalRiskThreshold is the S-value above which an event is flagged as
// capable of causing casualties.
const FatalRiskThreshold = 4.0

// Turkey is the fixed UTC+3 offset the observatory reports in.
var Turkey = time.FixedZone("TRT", 3*60*60)

// SeismicEvent is one observatory record plus the assessment attached to it
// during enrichment. It is not mutated after enrichment.
type SeismicEvent struct {
	ID       string    `json:"id"`
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Origin   time.Time `json:"origin"`
	Lat      float64   `json:"latitude"`
	Lon      float64   `json:"longitude"`
	DepthKm  float64   `json:"depth_km"`
	MD       *float64  `json:"md,omitempty"`
	ML       *float64  `json:"ml,omitempty"`
	Mw       *float64  `json:"mw,omitempty"`
	Location string    `json:"location"`
	Quality  string    `json:"quality"`

	// Assessment fields.
	Magnitude                   float64   `json:"magnitude"`
	IsOffshore                  bool      `json:"is_offshore"`
	NearestSettlementName       string    `json:"nearest_settlement_name"`
	NearestSettlementDistanceKm float64   `json:"nearest_settlement_distance_km"`
	S                           float64   `json:"s_value"`
	TTLSeconds                  int64     `json:"ttl_seconds"`
	TTLEpochSeconds             int64     `json:"ttl_epoch_seconds"`
	DangerRadiusKm              float64   `json:"danger_radius_km"`
	PossiblyAffected            []string  `json:"possibly_affected_settlements"`
	IsFatalRisk                 bool      `json:"is_fatal_risk"`
	ProcessedAt                 time.Time `json:"processed_at"`
}

// PreferredMagnitude returns Mw when reported, otherwise ML.
func (e SeismicEvent) PreferredMagnitude() (float64, error) {
	switch {
	case e.Mw != nil:
		return *e.Mw, nil
	case e.ML != nil:
		return *e.ML, nil
	default:
		return 0, ErrMissingMagnitude
	}
}

// Assessment is the derived view of an event produced by scoring.
type Assessment struct {
	Magnitude                   float64
	IsOffshore                  bool
	NearestSettlementName       string
	NearestSettlementDistanceKm float64
	S                           float64
	TTLSeconds                  int64
	TTLEpochSeconds             int64
	DangerRadiusKm              float64
	PossiblyAffected            []string
}

// WithAssessment returns a copy of the event carrying the assessment and a
// processing timestamp.
func (e SeismicEvent) WithAssessment(a Assessment) SeismicEvent {
	e.Magnitude = a.Magnitude
	e.IsOffshore = a.IsOffshore
	e.NearestSettlementName = a.NearestSettlementName
	e.NearestSettlementDistanceKm = a.NearestSettlementDistanceKm
	e.S = a.S
	e.TTLSeconds = a.TTLSeconds
	e.TTLEpochSeconds = a.TTLEpochSeconds
	e.DangerRadiusKm = a.DangerRadiusKm
	e.PossiblyAffected = a.PossiblyAffected
	if e.PossiblyAffected == nil {
		e.PossiblyAffected = []string{}
	}
	e.IsFatalRisk = a.S > FatalRiskThreshold
	e.ProcessedAt = clock.Now()
	return e
}

// Settlement is a populated place from the reference table.
type Settlement struct {
	GeonameID   int64       `json:"geonameid,omitempty"`
	Name        string      `json:"name"`
	Lat         float64     `json:"latitude"`
	Lon         float64     `json:"longitude"`
	FeatureCode FeatureCode `json:"feature_code"`
	CountryCode string      `json:"country_code"`
	Population  int64       `json:"population"`
}

// Coefficients parameterise the ground-motion attenuation relation.
type Coefficients struct {
	C1 float64 `json:"c1"`
	A5 float64 `json:"a5"`
	A6 float64 `json:"a6"`
	A7 float64 `json:"a7"`
}
