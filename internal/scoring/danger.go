package scoring

import "math"

// DangerThreshold is the S value that marks the edge of the danger zone.
const DangerThreshold = 3.7

// SolveDangerRadius inverts the score relation for the epicentral distance
// in km at which S falls to DangerThreshold. It returns 0 when no positive
// distance reaches the threshold.
func SolveDangerRadius(mag, depthKm, beta, a7, offshoreFactor float64) float64 {
	if beta == 0 || !finite(beta) || offshoreFactor == 0 {
		return 0
	}
	rStar := math.Pow(10, (mag-DangerThreshold/offshoreFactor)/beta) - 1
	if !finite(rStar) || rStar <= 0 {
		return 0
	}
	radicand := rStar*rStar - depthKm*depthKm - a7*a7
	if !finite(radicand) || radicand < 0 {
		return 0
	}
	return math.Sqrt(radicand)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
