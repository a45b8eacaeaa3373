package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/app"
	iauth "github.com/charlesng35/web3drender/internal/auth"
	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/handlers"
	"github.com/charlesng35/web3drender/internal/middleware"
	"github.com/charlesng35/web3drender/internal/monitoring"
	"github.com/charlesng35/web3drender/internal/monitoring/checks"
	"github.com/charlesng35/web3drender/internal/services"
	"github.com/charlesng35/web3drender/internal/uploads"
)

// NewRouter builds the Gin engine, wires middleware and registers every API route.
// A nil rateStore falls back to the in-process store. Extra readiness probes
// run alongside the database and upload directory checks.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, storage *uploads.Storage, rateStore middleware.RateStore, probes ...monitoring.Check) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if storage == nil {
		return nil, fmt.Errorf("upload storage must be provided")
	}
	if rateStore == nil {
		rateStore = middleware.NewMemoryRateStore()
	}

	svc, err := newServiceSet(db, cfg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	metricsEndpoint := cfg.Monitoring.Prometheus.Endpoint
	if metricsEndpoint == "" {
		metricsEndpoint = "/metrics"
	}
	// uploads and the metrics endpoint are served uncompressed
	r.Use(middleware.Compress(gzip.BestSpeed, "/uploads", metricsEndpoint))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	r.Static("/uploads", storage.Dir())

	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(metricsEndpoint, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Store:  rateStore,
		Name:   "api",
		Limit:  cfg.RateLimit.API.Limit,
		Window: cfg.RateLimit.API.Window,
	}))

	readiness := monitoring.NewHealthManager(0, checks.Database(db), checks.UploadDir(storage.Dir()))
	for _, probe := range probes {
		readiness.Register(probe)
	}

	api.GET("/health", handlers.Health())
	api.GET("/health/ready", handlers.Readiness(readiness))

	authLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		Store:          rateStore,
		Name:           "auth",
		Limit:          cfg.RateLimit.Auth.Limit,
		Window:         cfg.RateLimit.Auth.Window,
		ResetOnSuccess: true,
	})

	protected := api.Group("")
	protected.Use(middleware.Auth(jwt))

	registerAuthRoutes(api, protected, authLimiter, handlers.NewAuthHandler(svc.users, jwt))
	registerUserRoutes(protected, handlers.NewUserHandler(svc.users))
	registerProjectRoutes(protected, handlers.NewProjectHandler(svc.projects))
	registerModelRoutes(protected, handlers.NewModelHandler(svc.models, svc.georef, storage))
	registerAnnotationRoutes(protected, handlers.NewAnnotationHandler(svc.annotations))
	registerPhotogrammetryRoutes(protected, handlers.NewPhotogrammetryHandler(svc.photogrammetry))
	registerVolumetricVideoRoutes(protected, handlers.NewVolumetricVideoHandler(svc.videos))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

type serviceSet struct {
	users          *services.UserService
	projects       *services.ProjectService
	models         *services.ModelService
	georef         *services.GeoreferencingService
	annotations    *services.AnnotationService
	photogrammetry *services.PhotogrammetryService
	videos         *services.VolumetricVideoService
}

func newServiceSet(db *gorm.DB, cfg *app.Config) (*serviceSet, error) {
	queryCache := cache.NewQueryCache()
	ttls := cfg.Cache.QueryTTLs()

	var userOpts []services.UserServiceOption
	if cfg.Auth.PasswordCost > 0 {
		userOpts = append(userOpts, services.WithPasswordCost(cfg.Auth.PasswordCost))
	}

	var (
		set serviceSet
		err error
	)
	if set.users, err = services.NewUserService(db, queryCache, ttls, userOpts...); err != nil {
		return nil, err
	}
	if set.projects, err = services.NewProjectService(db, queryCache, ttls); err != nil {
		return nil, err
	}
	if set.models, err = services.NewModelService(db, queryCache, ttls); err != nil {
		return nil, err
	}
	if set.georef, err = services.NewGeoreferencingService(db, queryCache); err != nil {
		return nil, err
	}
	if set.annotations, err = services.NewAnnotationService(db, queryCache, ttls); err != nil {
		return nil, err
	}
	if set.photogrammetry, err = services.NewPhotogrammetryService(db); err != nil {
		return nil, err
	}
	if set.videos, err = services.NewVolumetricVideoService(db); err != nil {
		return nil, err
	}
	return &set, nil
}
