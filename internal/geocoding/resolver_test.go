package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rigger-connect-backend/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	label string
	err   error
	panic bool
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ResolveAddress(_ context.Context, _ geo.Coordinate) (string, error) {
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.label, s.err
}

type stubForwarder struct {
	coord geo.Coordinate
	err   error
	calls int
}

func (s *stubForwarder) Geocode(_ context.Context, _ string) (geo.Coordinate, error) {
	s.calls++
	return s.coord, s.err
}

func TestResolver_ReverseGeocode(t *testing.T) {
	ctx := context.Background()

	t.Run("Should be total when every network provider fails", func(t *testing.T) {
		a := &stubProvider{name: ProviderOpenCage, err: errors.New("timeout")}
		b := &stubProvider{name: ProviderNominatim, panic: true}
		c := &stubProvider{name: "Empty", label: "   "}
		r := NewResolverFromProviders([]Provider{a, b, c}, nil, nil, time.Minute)

		got := r.ReverseGeocode(ctx, -31.95051, 115.86049, "")
		assert.Equal(t, "-31.9505, 115.8605", got)
		assert.Equal(t, 1, a.calls)
		assert.Equal(t, 1, b.calls)
		assert.Equal(t, 1, c.calls)
	})

	t.Run("Should be total against real failing endpoints", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		r := NewResolver(testConfig(srv), nil)
		assert.Equal(t, []string{ProviderOpenCage, ProviderNominatim, ProviderCoordinates}, r.ProviderNames())
		assert.Equal(t, "0.0000, 0.0000", r.ReverseGeocode(ctx, 0, 0, ""))
	})

	t.Run("Should try the preferred provider first then the rest in order", func(t *testing.T) {
		a := &stubProvider{name: ProviderOpenCage, label: "from opencage"}
		b := &stubProvider{name: ProviderNominatim, err: errors.New("down")}
		r := NewResolverFromProviders([]Provider{a, b, CoordinatesProvider{}}, nil, nil, time.Minute)

		got := r.ReverseGeocode(ctx, perth.Latitude, perth.Longitude, "nominatim")
		assert.Equal(t, "from opencage", got)
		assert.Equal(t, 1, b.calls)
		assert.Equal(t, 1, a.calls)
	})

	t.Run("Should stop at the first success", func(t *testing.T) {
		a := &stubProvider{name: ProviderOpenCage, label: "first"}
		b := &stubProvider{name: ProviderNominatim, label: "second"}
		r := NewResolverFromProviders([]Provider{a, b}, nil, nil, time.Minute)

		assert.Equal(t, "first", r.ReverseGeocode(ctx, 1, 2, "Unknown"))
		assert.Equal(t, 0, b.calls)
	})

	t.Run("Should serve repeat lookups from cache", func(t *testing.T) {
		cache := NewMemoryCache(0)
		a := &stubProvider{name: ProviderNominatim, label: "Perth, Western Australia"}
		r := NewResolverFromProviders([]Provider{a, CoordinatesProvider{}}, nil, cache, time.Minute)

		assert.Equal(t, "Perth, Western Australia", r.ReverseGeocode(ctx, perth.Latitude, perth.Longitude, ""))
		assert.Equal(t, "Perth, Western Australia", r.ReverseGeocode(ctx, perth.Latitude, perth.Longitude, ""))
		assert.Equal(t, 1, a.calls)
		assert.Equal(t, 1, cache.Len())
	})
}

func TestResolver_Geocode(t *testing.T) {
	ctx := context.Background()

	t.Run("Should cache forward lookups case-insensitively", func(t *testing.T) {
		fwd := &stubForwarder{coord: perth}
		r := NewResolverFromProviders(nil, fwd, NewMemoryCache(0), time.Minute)

		c, err := r.Geocode(ctx, "Perth WA")
		require.NoError(t, err)
		assert.Equal(t, perth, c)

		c, err = r.Geocode(ctx, "  perth wa ")
		require.NoError(t, err)
		assert.Equal(t, perth, c)
		assert.Equal(t, 1, fwd.calls)
	})

	t.Run("Should reject blank input", func(t *testing.T) {
		r := NewResolverFromProviders(nil, &stubForwarder{}, nil, time.Minute)
		_, err := r.Geocode(ctx, " ")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("Should reject out-of-range provider output", func(t *testing.T) {
		r := NewResolverFromProviders(nil, &stubForwarder{coord: geo.Coordinate{Latitude: 120}}, nil, time.Minute)
		_, err := r.Geocode(ctx, "somewhere")
		assert.Error(t, err)
	})

	t.Run("Should fail without a forwarder", func(t *testing.T) {
		r := NewResolverFromProviders(nil, nil, nil, time.Minute)
		_, err := r.Geocode(ctx, "Perth")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	defer c.Close()

	c.Set(context.Background(), "k", "v", 10*time.Millisecond)
	v, ok := c.Get(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, ok = c.Get(context.Background(), "k")
	assert.False(t, ok)
}
