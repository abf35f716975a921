package geocoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rigger-connect-backend/pkg/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var perth = geo.Coordinate{Latitude: -31.9505, Longitude: 115.8605}

func testConfig(srv *httptest.Server) Config {
	return Config{
		OpenCageAPIKey:   "test-key",
		OpenCageBaseURL:  srv.URL + "/geocode/v1/json",
		NominatimBaseURL: srv.URL,
		UserAgent:        "RiggerConnect-App/1.0",
		Timeout:          2 * time.Second,
		NominatimRPS:     1000,
		CountryCodes:     "au",
		HTTPClient:       srv.Client(),
	}
}

func TestOpenCageProvider(t *testing.T) {
	t.Run("Should return the first formatted result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "-31.9505 115.8605", q.Get("q"))
			assert.Equal(t, "test-key", q.Get("key"))
			assert.Equal(t, "en", q.Get("language"))
			assert.Equal(t, "1", q.Get("no_annotations"))
			_, _ = w.Write([]byte(`{"results":[{"formatted":"Perth WA 6000, Australia"},{"formatted":"other"}]}`))
		}))
		defer srv.Close()

		got, err := NewOpenCageProvider(testConfig(srv)).ResolveAddress(context.Background(), perth)
		require.NoError(t, err)
		assert.Equal(t, "Perth WA 6000, Australia", got)
	})

	t.Run("Should fail without an API key and not call out", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
		defer srv.Close()

		cfg := testConfig(srv)
		cfg.OpenCageAPIKey = ""
		_, err := NewOpenCageProvider(cfg).ResolveAddress(context.Background(), perth)
		assert.ErrorIs(t, err, ErrNotConfigured)
		assert.False(t, called)
	})

	t.Run("Should surface HTTP errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
		}))
		defer srv.Close()

		_, err := NewOpenCageProvider(testConfig(srv)).ResolveAddress(context.Background(), perth)
		assert.ErrorContains(t, err, "402")
	})

	t.Run("Should report empty results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		}))
		defer srv.Close()

		_, err := NewOpenCageProvider(testConfig(srv)).ResolveAddress(context.Background(), perth)
		assert.ErrorIs(t, err, ErrNoResult)
	})
}

func nominatimServer(t *testing.T, reverse map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "RiggerConnect-App/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "16", r.URL.Query().Get("zoom"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		_ = json.NewEncoder(w).Encode(reverse)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "au", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		if r.URL.Query().Get("q") == "nowhere" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"-31.9523","lon":"115.8613","display_name":"Perth"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatimProvider_ResolveAddress(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
		wantErr error
	}{
		{
			name: "Full Australian address",
			payload: map[string]any{
				"display_name": "12, Hay Street, East Perth, Perth, Western Australia, 6004, Australia",
				"address": map[string]any{
					"house_number": "12", "road": "Hay Street", "suburb": "East Perth",
					"city": "Perth", "state": "Western Australia",
				},
			},
			want: "12 Hay Street, East Perth, Perth, Western Australia",
		},
		{
			name: "Road without house number, town and neighbourhood",
			payload: map[string]any{
				"display_name": "x",
				"address": map[string]any{
					"road": "Great Eastern Highway", "neighbourhood": "Sawyers Valley",
					"town": "Mundaring", "state": "Western Australia",
				},
			},
			want: "Great Eastern Highway, Sawyers Valley, Mundaring, Western Australia",
		},
		{
			name: "No usable components falls back to display name",
			payload: map[string]any{
				"display_name": "Indian Ocean",
				"address":      map[string]any{"country": "Australia"},
			},
			want: "Indian Ocean",
		},
		{
			name:    "Missing display name is a failure",
			payload: map[string]any{"error": "Unable to geocode"},
			wantErr: ErrNoResult,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := nominatimServer(t, tt.payload)
			got, err := NewNominatimProvider(testConfig(srv)).ResolveAddress(context.Background(), perth)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNominatimProvider_Geocode(t *testing.T) {
	srv := nominatimServer(t, nil)
	p := NewNominatimProvider(testConfig(srv))

	c, err := p.Geocode(context.Background(), "Perth WA")
	require.NoError(t, err)
	assert.InDelta(t, -31.9523, c.Latitude, 1e-9)
	assert.InDelta(t, 115.8613, c.Longitude, 1e-9)

	_, err = p.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestNominatimProvider_HonoursContext(t *testing.T) {
	srv := nominatimServer(t, map[string]any{"display_name": "x"})
	cfg := testConfig(srv)
	cfg.NominatimRPS = 0.001
	p := NewNominatimProvider(cfg)

	// First call consumes the only token.
	_, err := p.ResolveAddress(context.Background(), perth)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.ResolveAddress(ctx, perth)
	assert.ErrorContains(t, err, "rate limit")
}
