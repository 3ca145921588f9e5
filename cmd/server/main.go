package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/kmssa/attendance-register/api/swagger"
	"github.com/kmssa/attendance-register/internal/handler"
	"github.com/kmssa/attendance-register/internal/middleware"
	"github.com/kmssa/attendance-register/internal/repository"
	"github.com/kmssa/attendance-register/internal/service"
	"github.com/kmssa/attendance-register/pkg/cache"
	"github.com/kmssa/attendance-register/pkg/config"
	"github.com/kmssa/attendance-register/pkg/database"
	"github.com/kmssa/attendance-register/pkg/logger"
	corsmiddleware "github.com/kmssa/attendance-register/pkg/middleware/cors"
	reqidmiddleware "github.com/kmssa/attendance-register/pkg/middleware/requestid"
	"github.com/kmssa/attendance-register/pkg/storage"
)

// @title KMSSA Attendance Register API
// @version 1.0.0
// @description QR-driven attendance register for Kali Madhya Secondary School
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, redisClient, err := buildLedgerStore(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init ledger store", "driver", cfg.Store.Driver, "error", err)
	}

	metricsSvc := service.NewMetricsService()

	ledgerSvc, err := service.NewLedgerService(store, validator.New(), logr, metricsSvc)
	if err != nil {
		logr.Sugar().Fatalw("failed to load ledger", "error", err)
	}

	rosterSvc, err := service.NewRosterService(cfg.Roster.FilePath, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to load roster", "error", err)
	}

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		if redisClient == nil {
			redisClient, err = cache.NewRedis(cfg.Redis)
			if err != nil {
				logr.Sugar().Fatalw("failed to connect to redis", "error", err)
			}
		}
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled)

	statsSvc := service.NewStatsService(ledgerSvc, cacheSvc, cfg.Roster.TotalStudents, logr)
	ledgerSvc.OnMutate(func() { statsSvc.Invalidate(context.Background()) })

	ingestSvc := service.NewIngestService(ledgerSvc, rosterSvc, metricsSvc, logr, service.IngestConfig{
		AllowedClass:    cfg.Scanner.AllowedClass,
		RejectionNotice: cfg.Scanner.RejectionNotice,
		FeedBufferSize:  cfg.Scanner.FeedBufferSize,
	})
	if cfg.Scanner.FeedEnabled {
		ingestSvc.StartFeed(ctx)
		defer ingestSvc.StopFeed()
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "dir", cfg.Exports.StorageDir, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(ledgerSvc, exportStorage, signer, service.ExportServiceConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		WorkerRetries:   cfg.Exports.WorkerRetries,
	}, logr)
	exportSvc.StartWorkers(ctx)
	defer exportSvc.StopWorkers()

	attendanceHandler := handler.NewAttendanceHandler(ledgerSvc, ingestSvc)
	scanHandler := handler.NewScanHandler(ingestSvc)
	dashboardHandler := handler.NewDashboardHandler(statsSvc)
	studentHandler := handler.NewStudentHandler(rosterSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/scan", scanHandler.Ingest)
		api.POST("/scan/queue", scanHandler.Queue)

		api.GET("/attendance", attendanceHandler.List)
		api.POST("/attendance", attendanceHandler.Mark)
		api.DELETE("/attendance", attendanceHandler.Reset)
		api.GET("/attendance/recent", attendanceHandler.Recent)
		api.GET("/attendance/export", exportHandler.DownloadCSV)
		api.PATCH("/attendance/:timestamp", attendanceHandler.UpdateStatus)

		api.GET("/dashboard/summary", dashboardHandler.Summary)

		api.GET("/students/:id", studentHandler.Get)
		api.GET("/students/:id/qr", studentHandler.BadgeQR)

		api.POST("/exports", exportHandler.Create)
		api.GET("/exports/:id", exportHandler.Status)
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting",
			"addr", addr,
			"env", cfg.Env,
			"store", cfg.Store.Driver,
			"feed_enabled", cfg.Scanner.FeedEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// buildLedgerStore selects the persistence backend from config. The redis
// client is returned so the stats cache can share the connection.
func buildLedgerStore(cfg *config.Config, logr *zap.Logger) (repository.LedgerStore, *redis.Client, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisLedgerStore(client, cfg.Store.Key), client, nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewPostgresLedgerStore(db, cfg.Store.Key)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		store, err := repository.NewFileLedgerStore(cfg.Store.FilePath)
		if err != nil {
			return nil, nil, err
		}
		logr.Sugar().Infow("ledger persisted to file", "path", cfg.Store.FilePath)
		return store, nil, nil
	}
}
