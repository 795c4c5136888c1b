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

	_ "github.com/ju10/academy-api/api/swagger"
	"github.com/ju10/academy-api/internal/handler"
	"github.com/ju10/academy-api/internal/middleware"
	"github.com/ju10/academy-api/internal/models"
	"github.com/ju10/academy-api/internal/repository"
	"github.com/ju10/academy-api/internal/service"
	"github.com/ju10/academy-api/pkg/cache"
	"github.com/ju10/academy-api/pkg/config"
	"github.com/ju10/academy-api/pkg/database"
	"github.com/ju10/academy-api/pkg/logger"
	corsmiddleware "github.com/ju10/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ju10/academy-api/pkg/middleware/requestid"
	"github.com/ju10/academy-api/pkg/storage"
)

// @title JU10 Academy API
// @version 1.0.0
// @description Enrollment, manual payment reconciliation, events and certificates
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheService = service.NewCacheService(nil, metrics, cfg.Stats.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cfg.Stats.Enabled)
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	profileService := service.NewProfileService(profileRepo, validate, logr)
	catalogService := service.NewCatalogService(subjectRepo, logr)
	accessService := service.NewAccessService(enrollmentRepo, subjectRepo, logr)

	references := service.NewReferenceGenerator(cfg.Payments.ReferencePrefix)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, subjectRepo, profileRepo, userRepo, references, validate, logr, service.EnrollmentServiceConfig{
		PaymentMethod: cfg.Payments.Method,
	})
	enrollmentService.SetMetrics(metrics)

	eventService := service.NewEventService(eventRepo, validate, logr)
	certificateService := service.NewCertificateService(certificateRepo, enrollmentRepo, subjectRepo, profileRepo, userRepo, logr)
	statsService := service.NewStatsService(statsRepo, cacheService, logr, service.StatsServiceConfig{
		Currency: cfg.Payments.Currency,
		CacheTTL: cfg.Stats.CacheTTL,
	})

	var reportService *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportService = service.NewReportService(reportRepo, enrollmentRepo, store, signer, logr, service.ReportServiceConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Retention:  cfg.Reports.ArtifactRetention,
		})
	}

	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	catalogHandler := handler.NewCatalogHandler(catalogService, accessService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	adminHandler := handler.NewAdminHandler(enrollmentService, certificateService, statsService)
	eventHandler := handler.NewEventHandler(eventService)
	certificateHandler := handler.NewCertificateHandler(certificateService)
	metricsHandler := handler.NewMetricsHandler(metrics)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	catalog := api.Group("/catalog")
	{
		catalog.GET("/:kind", catalogHandler.List)
		catalog.GET("/:kind/:id", catalogHandler.Get)
		catalog.GET("/:kind/:id/access", middleware.JWT(authService), catalogHandler.Access)
	}

	courses := api.Group("/courses")
	{
		courses.GET("/:id/lessons", catalogHandler.Lessons)
		courses.GET("/:id/lessons/:lessonId", middleware.JWT(authService), catalogHandler.Lesson)
	}

	enrollments := api.Group("/enrollments", middleware.JWT(authService))
	{
		enrollments.POST("/:kind", enrollmentHandler.Create)
		enrollments.GET("/:kind", enrollmentHandler.ListMine)
		enrollments.GET("/:kind/:subjectId", enrollmentHandler.GetMine)
	}

	profile := api.Group("/profile", middleware.JWT(authService))
	{
		profile.GET("", profileHandler.Get)
		profile.PUT("", profileHandler.Update)
	}

	if cfg.Events.Enabled {
		events := api.Group("/events")
		{
			events.GET("", eventHandler.List)
			events.GET("/:id", eventHandler.Get)
			events.POST("/:id/register", middleware.OptionalJWT(authService), eventHandler.Register)
		}
	}

	certificates := api.Group("/certificates")
	{
		certificates.GET("/verify/:code", certificateHandler.Verify)
		certificates.GET("", middleware.JWT(authService), certificateHandler.ListMine)
		certificates.GET("/download/:code", middleware.JWT(authService), certificateHandler.Download)
	}

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/enrollments/:kind", adminHandler.ListEnrollments)
		admin.PUT("/enrollments/:kind/:id/confirm", adminHandler.Confirm)
		admin.PUT("/enrollments/:kind/:id/cancel", adminHandler.Cancel)
		admin.POST("/enrollments/:kind/:id/certificate", adminHandler.IssueCertificate)
		if cfg.Stats.Enabled {
			admin.GET("/stats", adminHandler.Stats)
		}
	}

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		admin.POST("/reports", middleware.Audit(userRepo, models.AuditActionReportRequest, "reports"), reportHandler.Create)
		admin.GET("/reports/:id", reportHandler.Get)
		api.GET("/reports/download", reportHandler.Download)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if reportService != nil {
		reportService.Start(ctx)
		defer reportService.Stop()
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
