package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between a and b in meters (haversine).
func Distance(a, b Point) float64 {
	φ1 := a.Latitude * math.Pi / 180
	φ2 := b.Latitude * math.Pi / 180
	Δφ := (b.Latitude - a.Latitude) * math.Pi / 180
	Δλ := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Fence is a circular area around a fixed center.
type Fence struct {
	Center       Point
	RadiusMeters float64
}

// Contains reports whether p lies within the fence, along with the computed distance.
func (f Fence) Contains(p Point) (bool, float64) {
	d := Distance(f.Center, p)
	return d <= f.RadiusMeters, d
}
