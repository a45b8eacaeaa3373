package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/api"
	"github.com/charlesng35/web3drender/internal/app"
	"github.com/charlesng35/web3drender/internal/app/maintenance"
	iauth "github.com/charlesng35/web3drender/internal/auth"
	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/database"
	"github.com/charlesng35/web3drender/internal/middleware"
	"github.com/charlesng35/web3drender/internal/monitoring"
	"github.com/charlesng35/web3drender/internal/monitoring/checks"
	"github.com/charlesng35/web3drender/internal/uploads"
	"github.com/charlesng35/web3drender/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Valkey    *cache.ValkeyStore
	Counters  *cache.DatabaseStore
	Storage   *uploads.Storage
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime opens the database, prepares upload storage, selects the
// rate limit backend and builds the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Storage, err = uploads.NewStorage(cfg.Uploads.Dir, cfg.Uploads.MaxSize())
	if err != nil {
		return nil, fmt.Errorf("initialise upload storage: %w", err)
	}

	stack.selectRateStore(cfg, log)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	var cleanerOpts []maintenance.Option
	if stack.Counters != nil {
		cleanerOpts = append(cleanerOpts, maintenance.WithCounterStore(stack.Counters))
	}
	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.Storage, cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	var probes []monitoring.Check
	if stack.Valkey != nil {
		probes = append(probes, checks.Valkey(stack.Valkey))
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, stack.Storage, stack.RateStore, probes...)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// selectRateStore picks the counter backend named by cache.rate_store. An
// unreachable Valkey server degrades to database counters.
func (s *runtimeStack) selectRateStore(cfg *app.Config, log *zap.Logger) {
	switch cfg.Cache.RateStoreBackend() {
	case app.RateStoreValkey:
		store, err := cache.NewValkeyStore(cfg.Cache.ValkeyClientConfig())
		if err == nil {
			s.Valkey = store
			s.RateStore = middleware.NewValkeyRateStore(store)
			log.Info("valkey connected", zap.String("addr", cfg.Cache.Valkey.Address))
			return
		}
		log.Warn("valkey unavailable; falling back to database rate counters", zap.Error(err))
		fallthrough
	case app.RateStoreDatabase:
		s.Counters = cache.NewDatabaseStore(s.DB)
		s.RateStore = middleware.NewDatabaseRateStore(s.Counters)
	default:
		s.RateStore = middleware.NewMemoryRateStore()
	}
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Valkey != nil {
		s.Valkey.Close()
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
