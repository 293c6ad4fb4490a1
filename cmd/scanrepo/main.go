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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/archivebase/scanrepo/api/swagger"
	"github.com/archivebase/scanrepo/internal/handler"
	"github.com/archivebase/scanrepo/internal/middleware"
	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/pagebrowser"
	"github.com/archivebase/scanrepo/internal/repository"
	"github.com/archivebase/scanrepo/internal/service"
	"github.com/archivebase/scanrepo/internal/solr"
	"github.com/archivebase/scanrepo/pkg/cache"
	"github.com/archivebase/scanrepo/pkg/config"
	"github.com/archivebase/scanrepo/pkg/database"
	"github.com/archivebase/scanrepo/pkg/export"
	"github.com/archivebase/scanrepo/pkg/logger"
	corsmiddleware "github.com/archivebase/scanrepo/pkg/middleware/cors"
	reqidmiddleware "github.com/archivebase/scanrepo/pkg/middleware/requestid"
	"github.com/archivebase/scanrepo/pkg/storage"
)

// @title Scan Repository API
// @version 1.0.0
// @description Digitized archival repository: scans, EAD finding aids and the search index behind them
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, pagelist caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewScanStore(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("storage init failed", "error", err)
	}

	solrClient := solr.NewClient(cfg.Solr.URL, cfg.Solr.Timeout)
	scanIndex := solr.NewEntityIndex(solrClient, service.EntityScan)
	eadIndex := solr.NewEntityIndex(solrClient, service.EntityEad)
	componentIndex := solr.NewEntityIndex(solrClient, service.EntityComponent)
	archiveFileIndex := solr.NewEntityIndex(solrClient, service.EntityArchiveFile)

	// Repositories.
	archiveRepo := repository.NewArchiveRepository(db)
	scanRepo := repository.NewScanRepository(db)
	imageRepo := repository.NewScanImageRepository(db)
	eadRepo := repository.NewEadRepository(db)
	archiveFileRepo := repository.NewArchiveFileRepository(db)
	logRepo := repository.NewLogRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	userRepo := repository.NewUserRepository(db)

	metrics := service.NewMetricsService()

	// Pagebrowser notifications.
	var sender pagebrowser.Sender = pagebrowser.NopSender{}
	if cfg.PageBrowser.Enabled {
		sender = pagebrowser.NewHTTPSender(
			cfg.PageBrowser.RefreshURL,
			cfg.PageBrowser.DeleteURL,
			cfg.PageBrowser.Username,
			cfg.PageBrowser.Password,
			cfg.PageBrowser.Timeout,
		)
	}
	notifier := pagebrowser.NewNotifier(sender, pagebrowser.Config{
		CoalesceWindow: cfg.PageBrowser.CoalesceWindow,
		Workers:        cfg.PageBrowser.Workers,
		Retries:        cfg.PageBrowser.Retries,
		Metrics:        metrics,
		Logger:         logr,
	})
	notifier.Start(ctx)
	defer notifier.Stop()
	metrics.ObserveQueueDepth("pagebrowser", notifier.QueueDepth)

	// Services.
	validate := validator.New()
	sequences := service.NewSequenceManager(db, scanRepo, imageRepo)
	logs := service.NewLogService(logRepo, logr)
	archiveFiles := service.NewArchiveFileService(archiveFileIndex, componentIndex, archiveFileRepo, sequences, eadRepo, notifier, logs, logr)
	scans := service.NewScanService(sequences, archiveRepo, store, scanIndex, archiveFiles, logs, metrics, logr)
	eads := service.NewEadService(eadRepo, store, archiveRepo, eadIndex, componentIndex, archiveFiles, logs, logr)
	archives := service.NewArchiveService(archiveRepo, service.ArchiveUsage{Scans: scanRepo, Eads: eadRepo}, logr)
	settings := service.NewSettingsService(settingsRepo, logs, logr)
	watermarks := service.NewWatermarkProvider(settings, cfg.Watermark, logr)
	images := service.NewImageService(db, imageRepo, sequences, store, watermarks, archiveFiles, logs, logr)
	exports := service.NewExportService(sequences, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Exports.MaxRows, logr)
	pagelists := service.NewPagelistService(sequences, redisClient, cfg.Index.CacheTTL, metrics, logr)
	reindex := service.NewReindexService(eadRepo, store, sequences, archiveFileRepo, eadIndex, componentIndex, scanIndex, archiveFiles, cfg.Index.ReindexBatchSize, logr)
	auth := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "scanrepo",
	})

	if err := settings.Load(ctx); err != nil {
		logr.Sugar().Warnw("settings load failed", "error", err)
	}

	signer := storage.NewDownloadSigner(cfg.JWT.Secret, 24*time.Hour)

	// Handlers.
	scanHandler := handler.NewScanHandler(scans, exports)
	imageHandler := handler.NewImageHandler(images, signer)
	eadHandler := handler.NewEadHandler(eads)
	archiveFileHandler := handler.NewArchiveFileHandler(archiveFiles, scans, pagelists)
	archiveHandler := handler.NewArchiveHandler(archives)
	logHandler := handler.NewLogHandler(logs)
	settingsHandler := handler.NewSettingsHandler(settings)
	authHandler := handler.NewAuthHandler(auth)
	adminHandler := handler.NewAdminHandler(reindex)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authed := middleware.JWT(auth)
	maybeAuthed := middleware.OptionalJWT(auth)
	admin := middleware.RequireRole(models.RoleAdmin)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/me", authed, authHandler.Me)

	api.GET("/scans", scanHandler.List)
	api.GET("/scans/export", scanHandler.Export)
	api.GET("/scans/:number", scanHandler.Get)
	api.POST("/scans", authed, scanHandler.Create)
	api.PUT("/scans/:number", authed, scanHandler.Update)
	api.PUT("/scans/:number/move", authed, scanHandler.Move)
	api.DELETE("/scans/:number", authed, scanHandler.Delete)

	api.GET("/scans/:number/images", imageHandler.List)
	api.GET("/scans/:number/image", imageHandler.DefaultFile)
	api.GET("/scans/:number/images/:imageID/file", maybeAuthed, imageHandler.File)
	api.GET("/scans/:number/images/:imageID/derivative", imageHandler.Derivative)
	api.GET("/scans/:number/images/:imageID/url", authed, imageHandler.SignedURL)
	api.POST("/scans/:number/images", authed, imageHandler.Upload)
	api.PUT("/scans/:number/images/:imageID/default", authed, imageHandler.SetDefault)
	api.DELETE("/scans/:number/images/:imageID", authed, imageHandler.Delete)

	api.GET("/ead", eadHandler.List)
	api.GET("/ead/:eadID", eadHandler.Get)
	api.GET("/ead/:eadID/xml", eadHandler.XML)
	api.GET("/ead/:eadID/tree", eadHandler.Tree)
	api.GET("/components", eadHandler.Components)
	api.POST("/ead", authed, eadHandler.Upload)
	api.PUT("/ead/:eadID/status", authed, eadHandler.UpdateStatus)
	api.DELETE("/ead/:eadID", authed, eadHandler.Delete)

	api.GET("/archivefiles", archiveFileHandler.List)
	api.GET("/archivefiles/:archiveID/:file", archiveFileHandler.Get)
	api.GET("/archivefiles/:archiveID/:file/scans", archiveFileHandler.Scans)
	api.GET("/archivefiles/:archiveID/:file/pagelist", archiveFileHandler.Pagelist)
	api.PUT("/archivefiles/:archiveID/:file/status", authed, archiveFileHandler.UpdateStatus)
	api.DELETE("/archivefiles/:archiveID/:file", authed, archiveFileHandler.Delete)

	api.GET("/pagebrowser/pagelist/:archiveID/:file", archiveFileHandler.Pagelist)

	api.GET("/archives", archiveHandler.List)
	api.GET("/archives/:id", archiveHandler.Get)
	api.POST("/archives", authed, admin, archiveHandler.Create)
	api.PUT("/archives/:id", authed, admin, archiveHandler.Update)
	api.DELETE("/archives/:id", authed, admin, archiveHandler.Delete)

	api.GET("/logs", authed, logHandler.Search)

	api.GET("/settings", authed, settingsHandler.List)
	api.PUT("/settings/:key", authed, admin, settingsHandler.Set)
	api.DELETE("/settings/:key", authed, admin, settingsHandler.Delete)

	api.POST("/admin/reindex", authed, admin, adminHandler.Reindex)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
