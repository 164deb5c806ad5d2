// Package geo computes great-circle distances between WGS 84 coordinates.
package geo

import (
	"fmt"
	"math"
)

// Coordinate bounds and the mean Earth radius used by the haversine formula.
const (
	EarthRadiusKm = 6371.0

	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0

	degreesToRadians = math.Pi / 180
)

// Coordinate is an immutable latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// New builds a validated Coordinate.
func New(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports ErrInvalidCoordinate when either component is NaN or out of range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < minLatitude || c.Latitude > maxLatitude {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < minLongitude || c.Longitude > maxLongitude {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// String renders the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if a == b {
		return 0, nil
	}

	lat1 := a.Latitude * degreesToRadians
	lat2 := b.Latitude * degreesToRadians
	dLat := (b.Latitude - a.Latitude) * degreesToRadians
	dLng := (b.Longitude - a.Longitude) * degreesToRadians

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h)), nil
}
