package sky

import "math"

// Unit conversions.
const (
	ArcsecPerDegree = 3600.0
	DegreesPerHour  = 15.0

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// Separation returns the great-circle distance between two points in arcseconds.
//
// Uses the haversine form, which stays accurate for the sub-arcsecond
// separations a cross-match cares about. The RA difference enters only
// through sin², so points either side of the 0/360 boundary are close.
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	phi1 := dec1 * degToRad
	phi2 := dec2 * degToRad
	dPhi := (dec2 - dec1) * degToRad
	dLambda := (ra2 - ra1) * degToRad

	sinDPhi := math.Sin(dPhi / 2)
	sinDLambda := math.Sin(dLambda / 2)

	a := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	// Rounding can push a just outside [0,1] for antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * radToDeg * ArcsecPerDegree
}

// SeparationDegrees is Separation expressed in degrees.
func SeparationDegrees(ra1, dec1, ra2, dec2 float64) float64 {
	return Separation(ra1, dec1, ra2, dec2) / ArcsecPerDegree
}

// NormalizeRA wraps a right ascension into [0, 360).
func NormalizeRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	// -1e-17 + 360 rounds to exactly 360.
	if ra >= 360 {
		ra = 0
	}
	return ra
}

// Valid reports whether ra is in [0,360) and dec in [-90,90].
func Valid(ra, dec float64) bool {
	if math.IsNaN(ra) || math.IsNaN(dec) {
		return false
	}
	return ra >= 0 && ra < 360 && dec >= -90 && dec <= 90
}
