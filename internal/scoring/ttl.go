package scoring

import (
	"math"
	"time"
)

// Lifetime bounds in minutes: half an hour to one week.
const (
	TTLMinMinutes = 30.0
	TTLMaxMinutes = 10080.0
)

// Default logistic parameters. S50 is the score at which the lifetime is
// halfway between the bounds.
const (
	DefaultS50       = 3.202
	DefaultSteepness = 2.4
)

// TTLCurve maps S to an information lifetime with a logistic curve.
type TTLCurve struct {
	S50 float64
	K   float64
}

// DefaultTTLCurve uses DefaultS50 and DefaultSteepness.
var DefaultTTLCurve = TTLCurve{S50: DefaultS50, K: DefaultSteepness}

// Minutes returns the lifetime in minutes, clamped to the bounds.
func (c TTLCurve) Minutes(s float64) float64 {
	ttl := TTLMinMinutes + (TTLMaxMinutes-TTLMinMinutes)/(1+math.Exp(-c.K*(s-c.S50)))
	if math.IsNaN(ttl) {
		return TTLMinMinutes
	}
	return math.Min(math.Max(ttl, TTLMinMinutes), TTLMaxMinutes)
}

// Seconds returns the lifetime rounded to whole seconds.
func (c TTLCurve) Seconds(s float64) int64 {
	return int64(math.Round(c.Minutes(s) * 60))
}

// ExpiresAt returns the Unix time at which information about an event that
// occurred at origin stops being relevant.
func (c TTLCurve) ExpiresAt(origin time.Time, s float64) int64 {
	return origin.Unix() + c.Seconds(s)
}
