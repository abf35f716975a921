// Package geo holds the geometry used by worker search: coordinates, great-circle
// distance, bounding boxes and the display helpers for distances.
package geo

import "fmt"

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies inside the WGS84 ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String formats the coordinate to 4 decimal places, e.g. "-31.9505, 115.8605".
func (c Coordinate) String() string {
	return FormatCoordinates(c.Latitude, c.Longitude)
}

// FormatCoordinates is the last-resort label for a point with no resolved address.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lng)
}
