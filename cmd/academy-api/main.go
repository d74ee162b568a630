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

	_ "github.com/aeropoint/academy-api/api/swagger"
	"github.com/aeropoint/academy-api/internal/repository"
	"github.com/aeropoint/academy-api/internal/service"
	"github.com/aeropoint/academy-api/pkg/cache"
	"github.com/aeropoint/academy-api/pkg/config"
	"github.com/aeropoint/academy-api/pkg/database"
	"github.com/aeropoint/academy-api/pkg/jobs"
	"github.com/aeropoint/academy-api/pkg/logger"
	"github.com/aeropoint/academy-api/pkg/mailer"
	"github.com/aeropoint/academy-api/pkg/storage"
)

// @title Aeropoint Academy API
// @version 1.0.0
// @description Back-office and student portal for the aviation training academy
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
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	examPoolRepo := repository.NewExamPoolRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Finance.DashboardCacheTTL, logr, redisClient != nil)

	var mail mailer.Mailer
	if cfg.Mail.Enabled && cfg.Mail.SendgridAPIKey != "" {
		mail = mailer.NewSendgridMailer(cfg.Mail.SendgridAPIKey, cfg.Mail.SubjectPrefix, logr)
	} else {
		mail = mailer.NewConsoleMailer(logr)
	}
	notifier := service.NewNotificationService(mail, logr, service.NotificationConfig{
		AdmissionsFrom: cfg.Mail.AdmissionsFrom,
		SupportFrom:    cfg.Mail.SupportFrom,
		AdminFrom:      cfg.Mail.AdminFrom,
	}, jobs.QueueConfig{
		Workers:    cfg.Mail.QueueWorkers,
		MaxRetries: cfg.Mail.QueueRetries,
		RetryDelay: cfg.Mail.QueueRetryDelay,
		Logger:     logr,
	})
	notifier.Start(ctx)
	defer notifier.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "aeropoint-academy-api",
		Audience:           []string{"aeropoint-academy"},
		BypassSecret:       cfg.DevAuth.BypassSecret,
		Production:         cfg.Env == config.EnvProduction,
	})
	userSvc := service.NewUserService(userRepo, notifier, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, userRepo, courseRepo, validate, logr)
	feeSvc := service.NewFeeService(
		feeRepo, studentRepo, walletRepo, userRepo, db,
		cacheSvc, notifier, validate, logr,
		service.FeeServiceConfig{
			SeatDepositRatio:  cfg.Finance.SeatDepositRatio,
			DashboardCacheTTL: cfg.Finance.DashboardCacheTTL,
			ReceiptIssuer:     cfg.Finance.ReceiptIssuer,
		},
	)
	examPoolSvc := service.NewExamPoolService(examPoolRepo, studentRepo, walletRepo, db, validate, logr, cfg.Exams.SeatCostCredits)
	gradingSvc := service.NewGradingService(assessmentRepo, courseRepo, studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, courseRepo, studentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, studentRepo, studentSvc, notifier, validate, logr)

	localStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	uploadSvc := service.NewUploadService(localStorage, signer, logr, service.UploadServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
		BaseURL:      cfg.BaseURL,
		APIPrefix:    cfg.APIPrefix,
	})

	router := buildRouter(routerDeps{
		cfg:            cfg,
		logger:         logr,
		db:             db,
		userRepo:       userRepo,
		metrics:        metricsSvc,
		auth:           authSvc,
		users:          userSvc,
		students:       studentSvc,
		fees:           feeSvc,
		pools:          examPoolSvc,
		grades:         gradingSvc,
		attendance:     attendanceSvc,
		courses:        courseSvc,
		applications:   applicationSvc,
		uploads:        uploadSvc,
		redisAvailable: redisClient != nil,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logr.Sugar().Warnw("redis close failed", "error", err)
		}
	}
}
