package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rigger")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "RiggerConnect-App/1.0", cfg.GeocoderUserAgent)
	assert.Equal(t, 50.0, cfg.SearchDefaultRadiusKm)
	assert.Equal(t, 20, cfg.SearchPageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SearchDebounce)
	assert.True(t, cfg.SearchAutoSearch)
	assert.Equal(t, "au", cfg.GeocoderCountryCodes)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("SEARCH_DEBOUNCE", "250ms")
	t.Setenv("NOMINATIM_RPS", "0.5")
	t.Setenv("SEARCH_PAGE_SIZE", "not-a-number")
	t.Setenv("SEARCH_AUTO_SEARCH", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", cfg.SupabaseUrl)
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 0.5, cfg.NominatimRPS)
	assert.Equal(t, 20, cfg.SearchPageSize, "invalid ints fall back to the default")
	assert.False(t, cfg.SearchAutoSearch)
}
