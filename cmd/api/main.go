package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rigger-connect-backend/config"
	v1 "rigger-connect-backend/internal/delivery/http/v1"
	"rigger-connect-backend/internal/geocoding"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/repository/postgres"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/internal/usecase"
	"rigger-connect-backend/pkg/auth"
	"rigger-connect-backend/pkg/database"
	"rigger-connect-backend/pkg/logger"
	"rigger-connect-backend/pkg/redis"
	"rigger-connect-backend/pkg/security"
	"rigger-connect-backend/pkg/validation"
)

// @title           RiggerConnect API
// @version         1.0
// @description     Location-aware worker search and job postings for RiggerConnect.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	secLogger := security.InitSecurityLogger("rigger-connect-api", security.Environment())
	defer func() { _ = secLogger.Sync() }()
	logger.Log.Info("Starting rigger connect backend", "port", cfg.Port)

	// 3. Setup Database
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbPool, err := database.NewPostgresConnection(dbCtx, cfg.DBUrl)
	dbCancel()
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Redis (optional)
	var geoCache geocoding.Cache
	var cacheProbe func(ctx context.Context) error
	if err := redis.Initialize(redis.Config{URL: cfg.UpstashRedisURL, Password: cfg.UpstashRedisPassword}); err != nil {
		logger.Log.Warn("Redis unavailable, using in-memory fallbacks", "error", err)
	}
	if rdb := redis.Client(); rdb != nil {
		geoCache = geocoding.NewRedisCache(rdb)
		cacheProbe = redis.HealthCheck
	} else {
		memCache := geocoding.NewMemoryCache(10 * time.Minute)
		defer memCache.Close()
		geoCache = memCache
	}
	defer func() { _ = redis.Close() }()

	// 5. Setup Geocoding
	resolver := geocoding.NewResolver(geocoding.Config{
		OpenCageAPIKey:   cfg.OpenCageAPIKey,
		OpenCageBaseURL:  cfg.OpenCageBaseURL,
		NominatimBaseURL: cfg.NominatimBaseURL,
		UserAgent:        cfg.GeocoderUserAgent,
		Timeout:          cfg.GeocoderTimeout,
		NominatimRPS:     cfg.NominatimRPS,
		CountryCodes:     cfg.GeocoderCountryCodes,
		CacheTTL:         cfg.GeocodeCacheTTL,
	}, geoCache)
	logger.Log.Info("Geocoding providers configured", "providers", resolver.ProviderNames())

	// 6. Setup Repositories
	profileRepo := postgres.NewProfileRepository(dbPool)
	jobPostingRepo := postgres.NewJobPostingRepository(dbPool)

	// 7. Setup UseCases
	validate := validation.New()
	workerSearchUC := usecase.NewWorkerSearchUsecase(profileRepo, validate)
	jobPostingUC := usecase.NewJobPostingUsecase(jobPostingRepo, validate, resolver)
	healthUC := usecase.NewHealthUsecase(dbPool, cacheProbe)

	// 8. Setup search sessions
	deviceHub := geolocation.NewDeviceHub()
	registry := search.NewRegistry(deviceHub, workerSearchUC, resolver, search.RegistryOptions{
		Search: search.Options{
			InitialRadiusKm: cfg.SearchDefaultRadiusKm,
			PageSize:        cfg.SearchPageSize,
			Debounce:        cfg.SearchDebounce,
			AutoSearch:      cfg.SearchAutoSearch,
			SearchTimeout:   cfg.SearchTimeout,
		},
		Location:  geolocation.DefaultOptions(),
		IdleTTL:   cfg.SessionIdleTTL,
		SweepSpec: cfg.SessionSweepSpec,
	})
	if err := registry.Start(); err != nil {
		logger.Log.Error("Failed to start session sweeper", "error", err)
		os.Exit(1)
	}
	defer registry.Stop()

	// 9. Setup Auth Provider (JWKS)
	jwksProvider := auth.NewProvider(auth.SupabaseJWKSURL(cfg.SupabaseUrl), &http.Client{Timeout: 10 * time.Second})

	// 10. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		HealthUC:       healthUC,
		WorkerSearchUC: workerSearchUC,
		JobPostingUC:   jobPostingUC,
		Geocoder:       resolver,
		DeviceHub:      deviceHub,
		Sessions:       registry,
		Validate:       validate,
		JWKSProvider:   jwksProvider,
		Config:         cfg,
	})

	// 11. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
