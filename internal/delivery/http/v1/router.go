package v1

import (
	"net/http"
	"time"

	"rigger-connect-backend/config"
	"rigger-connect-backend/internal/delivery/http/middleware"
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/internal/usecase"
	"rigger-connect-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	HealthUC       usecase.HealthUsecase
	WorkerSearchUC domain.WorkerSearchUsecase
	JobPostingUC   domain.JobPostingUsecase
	Geocoder       GeocodeService
	DeviceHub      *geolocation.DeviceHub
	Sessions       *search.Registry
	Validate       *validator.Validate
	JWKSProvider   *auth.Provider
	Config         *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	cfg := deps.Config
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(cfg.FrontendURL)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimitConfig(cfg.RateLimitGlobalThreshold, window)))

	searchLimiter := middleware.RateLimitMiddleware(middleware.SearchRateLimitConfig(cfg.RateLimitSearchThreshold, window))
	originAllowed := middleware.OriginPolicy(cfg.FrontendURL)

	v1 := r.Group("/v1")

	NewHealthHandler(v1, deps.HealthUC)

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Public routes
	NewWorkerHandler(v1, deps.WorkerSearchUC, searchLimiter)
	NewGeocodeHandler(v1, deps.Geocoder, searchLimiter)
	NewLocationHandler(v1, deps.DeviceHub, func(req *http.Request) bool {
		return originAllowed(req.Header.Get("Origin"))
	})
	NewSessionHandler(v1, deps.Sessions, deps.Validate)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.JWKSProvider, cfg))

	NewJobHandler(v1, protected, deps.JobPostingUC)

	return r
}
