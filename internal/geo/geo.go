// Package geo holds the distance math shared by the gazetteer and the search service.
package geo

import "math"

const (
	// EarthRadiusMiles is the sphere radius used for every mile distance we report.
	EarthRadiusMiles = 3959.0

	// KmPerMile converts a mile radius into the kilometre bound the index expects.
	KmPerMile = 1.60934
)

// Coord is a latitude/longitude pair in degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Finite reports whether both components are finite numbers.
func (c Coord) Finite() bool {
	return isFinite(c.Lat) && isFinite(c.Lon)
}

// Valid reports whether the coordinate is finite and inside the WGS84 ranges.
func (c Coord) Valid() bool {
	return c.Finite() && c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// MilesToKm converts miles to kilometres.
func MilesToKm(mi float64) float64 {
	return mi * KmPerMile
}

// HaversineMiles returns the great-circle distance between a and b in miles.
func HaversineMiles(a, b Coord) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// rounding can push h a hair past 1 for antipodal points
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
