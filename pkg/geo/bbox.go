package geo

import "math"

// BoundingBox is an axis-aligned latitude/longitude rectangle. It over-approximates a
// search circle, so anything it selects still needs an exact distance check.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// CalculateBoundingBox returns the box enclosing the circle of radiusKm around (lat, lon).
// Longitude bounds are widened for meridian convergence with asin(sin(d)/cos(lat)).
// When the circle reaches a pole the longitude span becomes the full range.
func CalculateBoundingBox(lat, lon, radiusKm float64) BoundingBox {
	angular := radiusKm / EarthRadiusKm
	angularDeg := toDegrees(angular)

	box := BoundingBox{
		MinLat: lat - angularDeg,
		MaxLat: lat + angularDeg,
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(lat))
	if box.MaxLat >= 90 || box.MinLat <= -90 || math.IsNaN(ratio) || math.Abs(ratio) >= 1 {
		box.MinLon = -180
		box.MaxLon = 180
		return box
	}

	deltaLon := toDegrees(math.Asin(ratio))
	box.MinLon = lon - deltaLon
	box.MaxLon = lon + deltaLon
	return box
}

// CrossesAntimeridian reports whether the longitude span wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLon < -180 || b.MaxLon > 180
}

// Clamped returns bounds that can be used directly in a range query: latitudes are
// clipped to [-90, 90] and a wrapping longitude span becomes the whole range.
func (b BoundingBox) Clamped() BoundingBox {
	out := b
	out.MinLat = math.Max(-90, b.MinLat)
	out.MaxLat = math.Min(90, b.MaxLat)
	if b.CrossesAntimeridian() {
		out.MinLon = -180
		out.MaxLon = 180
	}
	return out
}

// Contains reports whether c falls inside the box, accounting for wrap at ±180.
func (b BoundingBox) Contains(c Coordinate) bool {
	if c.Latitude < b.MinLat || c.Latitude > b.MaxLat {
		return false
	}
	if b.MaxLon-b.MinLon >= 360 {
		return true
	}
	lon := c.Longitude
	for _, shift := range []float64{0, 360, -360} {
		if l := lon + shift; l >= b.MinLon && l <= b.MaxLon {
			return true
		}
	}
	return false
}
