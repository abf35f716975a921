package geocoding

import (
	"context"

	"rigger-connect-backend/pkg/geo"
)

// CoordinatesProvider formats the raw coordinate. It never fails and closes
// every provider chain.
type CoordinatesProvider struct{}

func (CoordinatesProvider) Name() string { return ProviderCoordinates }

func (CoordinatesProvider) ResolveAddress(_ context.Context, c geo.Coordinate) (string, error) {
	return geo.FormatCoordinates(c.Latitude, c.Longitude), nil
}
