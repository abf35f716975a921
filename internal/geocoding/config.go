package geocoding

import (
	"net/http"
	"time"
)

// Config is built once at startup and never mutated. Zero fields fall back to
// the defaults in DefaultConfig.
type Config struct {
	OpenCageAPIKey   string
	OpenCageBaseURL  string
	NominatimBaseURL string
	UserAgent        string
	Timeout          time.Duration
	NominatimRPS     float64
	CountryCodes     string
	CacheTTL         time.Duration
	HTTPClient       *http.Client
}

func DefaultConfig() Config {
	return Config{
		OpenCageBaseURL:  "https://api.opencagedata.com/geocode/v1/json",
		NominatimBaseURL: "https://nominatim.openstreetmap.org",
		UserAgent:        "RiggerConnect-App/1.0",
		Timeout:          5 * time.Second,
		NominatimRPS:     1,
		CountryCodes:     "au",
		CacheTTL:         24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OpenCageBaseURL == "" {
		c.OpenCageBaseURL = d.OpenCageBaseURL
	}
	if c.NominatimBaseURL == "" {
		c.NominatimBaseURL = d.NominatimBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.NominatimRPS <= 0 {
		c.NominatimRPS = d.NominatimRPS
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}
