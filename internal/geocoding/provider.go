// Package geocoding turns coordinates into display labels and addresses into
// coordinates. Reverse lookups walk a prioritized list of providers and always
// end at a provider that cannot fail.
package geocoding

import (
	"context"
	"errors"

	"rigger-connect-backend/pkg/geo"
)

const (
	ProviderOpenCage    = "OpenCage"
	ProviderNominatim   = "Nominatim"
	ProviderCoordinates = "Coordinates"
)

var (
	// ErrNoResult means the provider answered but had nothing for the query.
	ErrNoResult = errors.New("geocoding: no result")
	// ErrNotConfigured means the provider is missing credentials.
	ErrNotConfigured = errors.New("geocoding: provider not configured")
)

// Provider resolves a coordinate to a single display string.
type Provider interface {
	Name() string
	ResolveAddress(ctx context.Context, c geo.Coordinate) (string, error)
}

// Forwarder resolves free text to a coordinate.
type Forwarder interface {
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}
