package geo

import "math"

// EarthRadius is the mean Earth radius in meters used by Distance.
const EarthRadius = 6371009.0

const metersPerMile = 1609.344

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Distance returns the haversine great-circle distance between a and b in meters.
// NaN coordinates propagate to the result.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	h = math.Min(h, 1)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Kilometers converts meters to kilometers.
func Kilometers(m float64) float64 { return m / 1000 }

// Miles converts meters to statute miles.
func Miles(m float64) float64 { return m / metersPerMile }
