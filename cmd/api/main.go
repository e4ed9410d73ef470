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
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ecocycle/ewaste-api/api/swagger"
	"github.com/ecocycle/ewaste-api/internal/handler"
	internalmiddleware "github.com/ecocycle/ewaste-api/internal/middleware"
	"github.com/ecocycle/ewaste-api/internal/models"
	"github.com/ecocycle/ewaste-api/internal/repository"
	"github.com/ecocycle/ewaste-api/internal/service"
	"github.com/ecocycle/ewaste-api/pkg/cache"
	"github.com/ecocycle/ewaste-api/pkg/config"
	"github.com/ecocycle/ewaste-api/pkg/database"
	"github.com/ecocycle/ewaste-api/pkg/events"
	"github.com/ecocycle/ewaste-api/pkg/logger"
	corsmiddleware "github.com/ecocycle/ewaste-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ecocycle/ewaste-api/pkg/middleware/requestid"
	"github.com/ecocycle/ewaste-api/pkg/storage"
)

// @title E-Waste Pickup API
// @version 1.0.0
// @description Pickup requests, collector assignment, delivery confirmation and collector earnings
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close()

	if dir := cfg.Database.MigrationsDir; dir != "" {
		version, err := database.Migrate(ctx, cfg.Database, os.DirFS(dir), logr)
		if err != nil {
			logr.Sugar().Fatalw("database migration failed", "dir", dir, "error", err)
		}
		logr.Info("database schema ready", zap.Uint("version", version))
	}

	metrics := service.NewMetricsService()
	pingers := map[string]handler.Pinger{"database": db}

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
			pingers["redis"] = cache.Pinger{Client: client}
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.CatalogTTL, logr, cacheRepo != nil)

	publisher := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logr)
	defer publisher.Close()

	photoStore, err := storage.NewLocalStorage(cfg.Photos.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("photo storage unavailable", "error", err)
	}
	statementStore, err := storage.NewLocalStorage(cfg.Statements.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("statement storage unavailable", "error", err)
	}

	profileRepo := repository.NewProfileRepository(db)
	requestRepo := repository.NewCollectionRequestRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	earningRepo := repository.NewEarningRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	calculator := service.NewPricingCalculator(cfg.Pricing.CommissionRate, cfg.Pricing.SustainabilityRate)
	catalogSvc := service.NewCatalogService(catalogRepo, cacheSvc, cfg.Cache.CatalogTTL, calculator, logr)
	photoSvc := service.NewPhotoService(photoStore, service.PhotoConfig{
		PublicBaseURL:    cfg.Photos.PublicBaseURL,
		MaxFiles:         cfg.Photos.MaxFiles,
		MaxFileSizeBytes: cfg.Photos.MaxFileSizeBytes,
	}, metrics, logr)
	earningsSvc := service.NewEarningsService(earningRepo, logr)
	settlementSvc := service.NewSettlementService(requestRepo, publisher, metrics, service.SettlementConfig{
		Delay:   cfg.Settlement.Delay,
		Workers: cfg.Settlement.Workers,
		Retries: cfg.Settlement.Retries,
	}, logr)
	requestSvc := service.NewCollectionRequestService(requestRepo, catalogSvc, calculator, photoSvc, metrics, logr,
		service.WithSettlementScheduler(settlementSvc),
		service.WithRequestEvents(publisher),
	)
	assignmentSvc := service.NewAssignmentService(profileRepo, requestRepo, earningsSvc, publisher, metrics, logr)
	deliverySvc := service.NewDeliveryService(deliveryRepo, requestRepo, publisher, logr)
	confirmationSvc := service.NewConfirmationService(deliveryRepo, requestRepo, earningsSvc, publisher, metrics, logr)
	authSvc := service.NewAuthService(profileRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	profileSvc := service.NewProfileService(profileRepo, publisher, nil, logr)
	signer := storage.NewSignedURLSigner(cfg.Statements.SignedURLSecret, cfg.Statements.SignedURLTTL)
	statementSvc := service.NewStatementService(earningsSvc, statementStore, signer,
		service.StatementConfig{APIPrefix: cfg.APIPrefix, ResultTTL: signer.TTL()}, logr)

	settlementSvc.Start(ctx)
	defer settlementSvc.Stop()
	if _, err := settlementSvc.Sweep(ctx); err != nil {
		logr.Warn("startup settlement sweep failed", zap.Error(err))
	}

	scheduler := cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logr))))
	if cfg.Settlement.SweepSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Settlement.SweepSchedule, func() {
			if _, err := settlementSvc.Sweep(ctx); err != nil {
				logr.Warn("settlement sweep failed", zap.Error(err))
			}
		}); err != nil {
			logr.Sugar().Fatalw("invalid settlement sweep schedule", "schedule", cfg.Settlement.SweepSchedule, "error", err)
		}
	}
	if cfg.Statements.CleanupSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Statements.CleanupSchedule, func() {
			removed, err := statementSvc.Cleanup(signer.TTL())
			if err != nil {
				logr.Warn("statement cleanup failed", zap.Error(err))
				return
			}
			logr.Info("statement cleanup finished", zap.Int("removed", len(removed)))
		}); err != nil {
			logr.Sugar().Fatalw("invalid statement cleanup schedule", "schedule", cfg.Statements.CleanupSchedule, "error", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	requestHandler := handler.NewCollectionRequestHandler(requestSvc, assignmentSvc,
		handler.WithPhotoLimits(cfg.Photos.MaxFiles, cfg.Photos.MaxFileSizeBytes))
	deliveryHandler := handler.NewDeliveryHandler(deliverySvc, confirmationSvc)
	earningsHandler := handler.NewEarningsHandler(earningsSvc, statementSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	metricsHandler := handler.NewMetricsHandler(metrics.Handler(), pingers)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr,
		logger.WithActor(func(c *gin.Context) (string, string) {
			if claims := internalmiddleware.Claims(c); claims != nil {
				return claims.UserID, string(claims.Role)
			}
			return "", ""
		}),
		logger.WithQuietPaths("/health", "/ready", "/metrics"),
	))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.MaxMultipartMemory = int64(cfg.Photos.MaxFiles+1) * cfg.Photos.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static("/uploads/pickup-photos", cfg.Photos.StorageDir)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/earnings/statements/download", earningsHandler.DownloadStatement)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	secured.GET("/catalog/pricing", catalogHandler.PricingCategories)
	secured.GET("/catalog/time-slots", catalogHandler.TimeSlots)
	secured.GET("/catalog/statuses", catalogHandler.Statuses)
	secured.POST("/pricing/quote", catalogHandler.Quote)

	requests := secured.Group("/collection-requests")
	requests.POST("", internalmiddleware.RequireRoles(models.RolePublic, models.RoleAdmin), requestHandler.Submit)
	requests.GET("", requestHandler.List)
	requests.GET("/:id", requestHandler.Get)
	requests.POST("/:id/assign", internalmiddleware.RequireRoles(models.RoleRecyclingCenter, models.RoleAdmin), requestHandler.Assign)

	deliveries := secured.Group("/deliveries")
	deliveries.Use(internalmiddleware.RequireRoles(models.RoleCollector, models.RoleRecyclingCenter, models.RoleAdmin))
	deliveries.POST("", internalmiddleware.RequireRoles(models.RoleCollector), deliveryHandler.Create)
	deliveries.GET("", deliveryHandler.List)
	deliveries.PATCH("/:id/status", deliveryHandler.UpdateStatus)
	deliveries.POST("/:id/confirm", internalmiddleware.RequireRoles(models.RoleRecyclingCenter, models.RoleAdmin), deliveryHandler.Confirm)

	earnings := secured.Group("/earnings")
	earnings.Use(internalmiddleware.RequireRoles(models.RoleCollector, models.RoleAdmin))
	earnings.GET("", earningsHandler.Overview)
	earnings.POST("/statements", earningsHandler.GenerateStatement)

	profiles := secured.Group("/profiles")
	profiles.Use(internalmiddleware.RequireRoles(models.RoleAdmin))
	profiles.GET("", profileHandler.List)
	profiles.POST("/:id/review", profileHandler.Review)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
