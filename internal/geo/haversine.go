// Package geo holds the read-only spatial reference data used for scoring:
// the settlement index and the land mask. Both are built once at startup and
// are safe for concurrent use.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for every distance.
const EarthRadiusKm = 6371.0

const degToRad = math.Pi / 180

// Haversine returns the great-circle distance in kilometres between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
