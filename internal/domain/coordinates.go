package domain

import "math"

const earthRadiusKm = 6371.0

// Immutable geographic coordinates (latitude, longitude in degrees).
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lat, lon] for map clients.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lat, c.Lon} }

// DistanceKm returns the great-circle distance between two coordinates.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Interpolate returns the point at fraction f (clamped to [0,1]) between c and other.
func (c Coordinates) Interpolate(other Coordinates, f float64) Coordinates {
	f = math.Max(0, math.Min(1, f))
	return Coordinates{
		Lat: c.Lat + (other.Lat-c.Lat)*f,
		Lon: c.Lon + (other.Lon-c.Lon)*f,
	}
}
