package gazetteer

import "math"

// DefaultCoordinateThreshold is the proximity cutoff in degrees under
// the default metric (~5.5 km at the equator).
const DefaultCoordinateThreshold = 0.05

// DistanceMetric compares two coordinate pairs. The resolver and merge
// engine only ever compare the result against a threshold, so any
// monotonic metric can be substituted.
type DistanceMetric func(lat1, lng1, lat2, lng2 float64) float64

// ManhattanDegrees is |Δlat| + |Δlng|. Thresholds in this codebase were
// tuned against this metric; it stays the default.
func ManhattanDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Abs(lat1-lat2) + math.Abs(lng1-lng2)
}

const earthRadiusKm = 6371.0

// HaversineKm is a geodesic alternative. Callers substituting it must
// supply thresholds in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
