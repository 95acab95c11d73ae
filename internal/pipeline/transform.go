package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Assessor is implemented by scoring.Engine.
type Assessor interface {
	Assess(ev domain.SeismicEvent) (domain.Assessment, error)
}

// ScoringEnricher implements Enricher using the scoring engine.
type ScoringEnricher struct {
	assessor Assessor
	logger   *slog.Logger
}

// NewEnricher creates a ScoringEnricher.
func NewEnricher(a Assessor, logger *slog.Logger) *ScoringEnricher {
	return &ScoringEnricher{assessor: a, logger: logger}
}

func (e *ScoringEnricher) Enrich(ev domain.SeismicEvent) (domain.SeismicEvent, error) {
	a, err := e.assessor.Assess(ev)
	if err != nil {
		return domain.SeismicEvent{}, fmt.Errorf("assess event %s: %w", ev.ID, err)
	}

	out := ev.WithAssessment(a)
	if out.IsFatalRisk {
		e.logger.Warn("fatal risk event",
			"event_id", out.ID,
			"location", out.Location,
			"magnitude", out.Magnitude,
			"s_value", out.S,
			"danger_radius_km", out.DangerRadiusKm,
			"affected", len(out.PossiblyAffected),
		)
	}
	return out, nil
}
