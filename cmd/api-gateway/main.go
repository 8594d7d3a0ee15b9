package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MVitabar/Notas-Frontend-sub001/api/swagger"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/handler"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/middleware"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/repository"
	"github.com/MVitabar/Notas-Frontend-sub001/internal/service"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/backend"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/cache"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/config"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/database"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/jobs"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/logger"
	corsmiddleware "github.com/MVitabar/Notas-Frontend-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/MVitabar/Notas-Frontend-sub001/pkg/middleware/requestid"
	"github.com/MVitabar/Notas-Frontend-sub001/pkg/observability"
)

// @title Academic Period Gateway
// @version 1.0.0
// @description Academic period API with single-current-period activation
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	flushSentry, err := observability.Init(cfg.Sentry.DSN, cfg.Env, cfg.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	reporter := observability.NewReporter()
	readiness := map[string]handler.ReadinessCheck{}

	client := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		MaxRetries: cfg.Backend.MaxRetries,
		Observer:   metrics,
		Logger:     logr,
	})

	var redisClient redis.UniversalClient
	if cfg.Periods.CacheEnabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, period cache disabled", zap.Error(err))
		} else {
			redisClient = rdb
			readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Periods.CacheTTL, logr, redisClient != nil)

	var db *sqlx.DB
	if cfg.Periods.AuditEnabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect audit database", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate audit database", zap.Error(err))
		}
		readiness["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}

	validate := validator.New()
	periodSvc := service.NewAcademicPeriodService(repository.NewAcademicPeriodRepository(client), cacheSvc, validate, logr)

	queue := jobs.NewQueue("period-invariant", jobs.QueueConfig{
		Workers:    cfg.Invariant.Workers,
		MaxRetries: cfg.Invariant.MaxRetries,
		RetryDelay: cfg.Invariant.RetryDelay,
		Logger:     logr,
	})
	invariantSvc := service.NewPeriodInvariantService(periodSvc, queue, cfg.Backend.ServiceToken, reporter, metrics, logr)
	queue.Register(service.JobTypePeriodInvariantCheck, invariantSvc.Handle)
	queue.Start(ctx)
	defer queue.Stop()
	if cfg.Backend.ServiceToken != "" {
		invariantSvc.Schedule(ctx, "startup")
	}

	deps := service.ActivationDeps{
		Checks:   invariantSvc,
		Reporter: reporter,
		Metrics:  metrics,
	}
	if db != nil {
		deps.Audits = repository.NewActivationAuditRepository(db)
	}
	activationSvc := service.NewPeriodActivationService(periodSvc, deps, logr)
	exportSvc := service.NewExportService(periodSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.RequestContext())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Routes{
		APIPrefix: cfg.APIPrefix,
		Tokens:    service.NewTokenService(cfg.JWT.Secret, logr),
		Periods:   handler.NewAcademicPeriodHandler(periodSvc, activationSvc, exportSvc),
		Metrics:   handler.NewMetricsHandler(metrics, readiness),
	}.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
