package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ctos-api/api/swagger"
	"github.com/noah-isme/ctos-api/internal/handler"
	"github.com/noah-isme/ctos-api/internal/repository"
	"github.com/noah-isme/ctos-api/internal/service"
	"github.com/noah-isme/ctos-api/pkg/cache"
	"github.com/noah-isme/ctos-api/pkg/config"
	"github.com/noah-isme/ctos-api/pkg/database"
	"github.com/noah-isme/ctos-api/pkg/export"
	"github.com/noah-isme/ctos-api/pkg/jobs"
	"github.com/noah-isme/ctos-api/pkg/logger"
	"github.com/noah-isme/ctos-api/pkg/storage"
)

// @title CTOS API
// @version 1.0.0
// @description Clinical trial document workspace: role scoped document queries, site overview, community Q&A and report exports.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		redisClient = client
	}

	app, err := buildApp(cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to wire application", "error", err)
	}
	defer app.cacheRepo.Close() //nolint:errcheck

	if app.reportQueue != nil {
		app.reportQueue.Start(ctx)
		defer app.reportQueue.Stop()
		app.reports.RecoverPendingJobs(ctx)
		app.reports.StartCleanup(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

type app struct {
	router      *gin.Engine
	cacheRepo   *repository.CacheRepository
	reports     *service.ReportService
	reportQueue *jobs.Queue
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*app, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	preferences := repository.NewRolePreferenceRepository(redisClient, cfg.Documents.RolePreferenceTTL)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Documents.ListCacheTTL, logr, cacheRepo.Enabled())

	documentFiles, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("document storage: %w", err)
	}
	exportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("export storage: %w", err)
	}
	documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	exportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, preferences, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	documentSvc := service.NewDocumentService(
		documentRepo,
		sectionRepo,
		siteRepo,
		userRepo,
		documentFiles,
		documentSigner,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.DocumentServiceConfig{
			DefaultPageSize: cfg.Documents.DefaultPageSize,
			MaxPageSize:     cfg.Documents.MaxPageSize,
			ListCacheTTL:    cfg.Documents.ListCacheTTL,
			MaxFileSize:     cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs:    cfg.Documents.AllowedMIMEs,
			DownloadPath:    cfg.APIPrefix + "/documents/files/",
		},
	)
	siteSvc := service.NewSiteService(siteRepo, metrics, logr)
	communitySvc := service.NewCommunityService(questionRepo, userRepo, validate, logr, service.CommunityConfig{
		DefaultPageSize: cfg.Community.DefaultPageSize,
		MaxPageSize:     cfg.Community.MaxPageSize,
	})
	sessionSvc := service.NewSessionService(documentSvc, communitySvc, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)

	exportSvc := service.NewExportService(
		documentSvc,
		documentRepo,
		siteRepo,
		exportFiles,
		exportSigner,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
	)

	var (
		dispatcher  interface{ Enqueue(jobs.Job) error } = disabledQueue{}
		reportQueue *jobs.Queue
	)
	if cfg.Reports.Enabled {
		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
			OnDrop: func(job jobs.Job, err error) {
				metrics.RecordDroppedJob("reports", job.Type)
			},
		})
		metrics.TrackQueue(reportQueue.Name(), reportQueue.Depth)
		dispatcher = reportQueue
	}
	reportSvc := service.NewReportService(reportRepo, documentRepo, siteRepo, documentSvc, dispatcher, exportSvc, cacheSvc, metrics, logr, service.ReportServiceConfig{
		SummaryTTL:      cfg.Reports.SummaryCacheTTL,
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	handlers := routeHandlers{
		auth:      handler.NewAuthHandler(authSvc),
		session:   handler.NewSessionHandler(sessionSvc, authSvc),
		documents: handler.NewDocumentHandler(documentSvc),
		sites:     handler.NewSiteHandler(siteSvc),
		community: handler.NewCommunityHandler(communitySvc),
		reports:   handler.NewReportHandler(reportSvc),
		users:     handler.NewUserHandler(userSvc),
		metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis":    cacheRepo.Ping,
		}),
	}

	router := newRouter(cfg, logr, authSvc, userRepo, metrics, handlers)

	return &app{router: router, cacheRepo: cacheRepo, reports: reportSvc, reportQueue: reportQueue}, nil
}

// disabledQueue rejects report jobs when ENABLE_REPORTS is off.
type disabledQueue struct{}

func (disabledQueue) Enqueue(jobs.Job) error {
	return errors.New("report generation is disabled")
}
