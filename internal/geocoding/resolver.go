package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/logger"
)

// Resolver walks its providers in priority order. Reverse lookups never fail.
type Resolver struct {
	providers []Provider
	forwarder Forwarder
	cache     Cache
	ttl       time.Duration
}

// NewResolver wires the production chain: OpenCage, Nominatim, Coordinates.
// Nominatim also serves forward lookups. cache may be nil.
func NewResolver(cfg Config, cache Cache) *Resolver {
	cfg = cfg.withDefaults()
	nominatim := NewNominatimProvider(cfg)
	return NewResolverFromProviders(
		[]Provider{NewOpenCageProvider(cfg), nominatim, CoordinatesProvider{}},
		nominatim, cache, cfg.CacheTTL,
	)
}

func NewResolverFromProviders(providers []Provider, forwarder Forwarder, cache Cache, ttl time.Duration) *Resolver {
	return &Resolver{
		providers: providers,
		forwarder: forwarder,
		cache:     cache,
		ttl:       ttl,
	}
}

// ProviderNames lists providers in the order they are tried.
func (r *Resolver) ProviderNames() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// order puts the preferred provider first, keeping the rest in priority order.
// An unknown name leaves the order unchanged.
func (r *Resolver) order(preferred string) []Provider {
	if preferred == "" {
		return r.providers
	}
	idx := -1
	for i, p := range r.providers {
		if strings.EqualFold(p.Name(), preferred) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return r.providers
	}
	out := make([]Provider, 0, len(r.providers))
	out = append(out, r.providers[idx])
	out = append(out, r.providers[:idx]...)
	return append(out, r.providers[idx+1:]...)
}

// ReverseGeocode returns a display label for (lat, lng). Provider failures are
// logged and skipped; when all fail the formatted coordinate is returned.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lng float64, preferred string) string {
	c := geo.Coordinate{Latitude: lat, Longitude: lng}

	for _, p := range r.order(preferred) {
		key := reverseKey(p.Name(), c)
		if label, ok := r.cacheGet(ctx, p, key); ok {
			return label
		}

		label, err := resolveSafely(ctx, p, c)
		if err == nil && strings.TrimSpace(label) != "" {
			r.cacheSet(ctx, p, key, label)
			logger.Log.Debug("Reverse geocoded", "provider", p.Name(), "lat", lat, "lng", lng)
			return label
		}
		if err == nil {
			err = ErrNoResult
		}
		logger.Log.Warn("Geocoding provider failed", "provider", p.Name(), "error", err)
	}

	return geo.FormatCoordinates(lat, lng)
}

// Geocode converts free text into a coordinate.
func (r *Resolver) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geo.Coordinate{}, ErrNoResult
	}
	if r.forwarder == nil {
		return geo.Coordinate{}, ErrNotConfigured
	}

	key := "forward:" + strings.ToLower(address)
	if r.cache != nil {
		if v, ok := r.cache.Get(ctx, key); ok {
			if c, err := parseCoordinate(v); err == nil {
				return c, nil
			}
		}
	}

	c, err := r.forwarder.Geocode(ctx, address)
	if err != nil {
		return geo.Coordinate{}, err
	}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("geocoding: provider returned out-of-range coordinate %v", c)
	}

	if r.cache != nil {
		r.cache.Set(ctx, key, formatFloat(c.Latitude)+","+formatFloat(c.Longitude), r.ttl)
	}
	return c, nil
}

// resolveSafely turns a provider panic into an error so one bad provider
// cannot break the chain.
func resolveSafely(ctx context.Context, p Provider, c geo.Coordinate) (label string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("geocoding: provider %s panicked: %v", p.Name(), rec)
		}
	}()
	return p.ResolveAddress(ctx, c)
}

// Only network providers are cached; formatting coordinates is free.
func (r *Resolver) cacheGet(ctx context.Context, p Provider, key string) (string, bool) {
	if r.cache == nil || p.Name() == ProviderCoordinates {
		return "", false
	}
	return r.cache.Get(ctx, key)
}

func (r *Resolver) cacheSet(ctx context.Context, p Provider, key, label string) {
	if r.cache == nil || p.Name() == ProviderCoordinates {
		return
	}
	r.cache.Set(ctx, key, label, r.ttl)
}

// Keys round to 5 decimals (about a metre) so jittery fixes share entries.
func reverseKey(provider string, c geo.Coordinate) string {
	return fmt.Sprintf("reverse:%s:%.5f,%.5f", strings.ToLower(provider), c.Latitude, c.Longitude)
}

func parseCoordinate(s string) (geo.Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, errors.New("geocoding: malformed cached coordinate")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return geo.Coordinate{}, err
	}
	return geo.Coordinate{Latitude: lat, Longitude: lng}, nil
}
