package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DBUrl             string
	SupabaseUrl       string
	SupabaseJWTSecret string
	FrontendURL       string
	LogLevel          string
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitGlobalThreshold int
	RateLimitSearchThreshold int
	// Geocoding
	OpenCageAPIKey       string
	OpenCageBaseURL      string
	NominatimBaseURL     string
	GeocoderUserAgent    string
	GeocoderTimeout      time.Duration
	NominatimRPS         float64
	GeocoderCountryCodes string
	GeocodeCacheTTL      time.Duration
	// Worker search sessions
	SearchDefaultRadiusKm float64
	SearchPageSize        int
	SearchDebounce        time.Duration
	SearchTimeout         time.Duration
	SearchAutoSearch      bool
	SessionIdleTTL        time.Duration
	SessionSweepSpec      string
}

func LoadConfig() (*Config, error) {
	// Only effective locally; production injects env directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		DBUrl: getEnv("DATABASE_URL", ""),
		// Strip trailing slash to avoid ".co//auth"
		SupabaseUrl:       strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", getEnv("SUPABASE_JWT_KEY", "")),
		FrontendURL:       strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		LogLevel:          getEnv("LOG_LEVEL", "debug"),
		// Redis/Upstash Configuration
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting Configuration
		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
		RateLimitSearchThreshold: getEnvInt("RATE_LIMIT_SEARCH_THRESHOLD", 60),
		// Geocoding
		OpenCageAPIKey:       getEnv("OPENCAGE_API_KEY", ""),
		OpenCageBaseURL:      strings.TrimRight(getEnv("OPENCAGE_BASE_URL", "https://api.opencagedata.com/geocode/v1/json"), "/"),
		NominatimBaseURL:     strings.TrimRight(getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"), "/"),
		GeocoderUserAgent:    getEnv("GEOCODER_USER_AGENT", "RiggerConnect-App/1.0"),
		GeocoderTimeout:      getEnvDuration("GEOCODER_TIMEOUT", 5*time.Second),
		NominatimRPS:         getEnvFloat("NOMINATIM_RPS", 1),
		GeocoderCountryCodes: getEnv("GEOCODER_COUNTRY_CODES", "au"),
		GeocodeCacheTTL:      getEnvDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
		// Worker search sessions
		SearchDefaultRadiusKm: getEnvFloat("SEARCH_DEFAULT_RADIUS_KM", 50),
		SearchPageSize:        getEnvInt("SEARCH_PAGE_SIZE", 20),
		SearchDebounce:        getEnvDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
		SearchTimeout:         getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		SearchAutoSearch:      getEnvBool("SEARCH_AUTO_SEARCH", true),
		SessionIdleTTL:        getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SessionSweepSpec:      getEnv("SESSION_SWEEP_SPEC", "@every 1m"),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}

	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting and geocode cache will use in-memory fallback.")
	}

	if cfg.OpenCageAPIKey == "" {
		log.Println("INFO: OPENCAGE_API_KEY not set. Reverse geocoding starts at Nominatim.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("500ms", "24h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
