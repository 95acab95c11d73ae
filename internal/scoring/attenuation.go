// Package scoring turns a located earthquake into its relevance score S, an
// information lifetime and a danger radius.
package scoring

import (
	"fmt"
	"math"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// AttenuationModel is the magnitude-dependent ground-motion decay relation.
type AttenuationModel struct {
	coef domain.Coefficients
}

// NewAttenuationModel rejects non-finite coefficients.
func NewAttenuationModel(c domain.Coefficients) (AttenuationModel, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"c1", c.C1}, {"a5", c.A5}, {"a6", c.A6}, {"a7", c.A7}} {
		if !finite(f.v) {
			return AttenuationModel{}, fmt.Errorf("coefficient %s is not finite: %v", f.name, f.v)
		}
	}
	return AttenuationModel{coef: c}, nil
}

// Coefficients returns the model parameters.
func (m AttenuationModel) Coefficients() domain.Coefficients { return m.coef }

// CoefficientsFor returns the decay slope beta for magnitude mag, in natural
// log units, and the near-source saturation term a7 in km.
func (m AttenuationModel) CoefficientsFor(mag float64) (beta, a7 float64) {
	beta = -(m.coef.A5 + m.coef.A6*(mag-m.coef.C1)) * math.Ln10
	return beta, m.coef.A7
}
