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
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-records-api/api/swagger"
	"github.com/noah-isme/student-records-api/internal/handler"
	"github.com/noah-isme/student-records-api/internal/repository"
	"github.com/noah-isme/student-records-api/internal/service"
	"github.com/noah-isme/student-records-api/pkg/cache"
	"github.com/noah-isme/student-records-api/pkg/config"
	"github.com/noah-isme/student-records-api/pkg/database"
	"github.com/noah-isme/student-records-api/pkg/jobs"
	"github.com/noah-isme/student-records-api/pkg/logger"
	"github.com/noah-isme/student-records-api/pkg/storage"
)

// @title Student Records API
// @version 1.0.0
// @description Student records, course catalogue, enrollment admission control, grades and transcripts.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedis(rootCtx, cfg.Redis, cfg.Cache)
	if err != nil {
		// Caching is optional; lookups fall through to Postgres.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	files, err := storage.NewLocalStorage(cfg.Transcripts.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare transcript storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Transcripts.SignedURLSecret, cfg.Transcripts.SignedURLTTL)

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	classRepo := repository.NewClassRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	referenceSvc := service.NewReferenceService(referenceRepo, cacheSvc, logr)
	studentSvc := service.NewStudentService(studentRepo, referenceSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, courseRepo, semesterRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, semesterRepo, courseSvc, metricsSvc, validate, logr,
		service.EnrollmentServiceConfig{CancellationWindow: cfg.Enrollment.CancellationWindow})
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, classRepo, cacheSvc, cfg.Enrollment.MidtermWeight, validate, logr)
	transcriptSvc := service.NewTranscriptService(studentRepo, gradeRepo, cacheSvc, files, signer, metricsSvc,
		service.TranscriptConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Transcripts.SignedURLTTL}, logr)

	readiness := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		readiness["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	routerCfg := handler.RouterConfig{
		APIPrefix:  cfg.APIPrefix,
		CORS:       cfg.CORS,
		EnableDocs: cfg.Env != config.EnvProduction,
		Metrics:    metricsSvc,
		Logger:     logr,
	}
	if cfg.JWT.Enabled {
		routerCfg.Tokens = service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	} else {
		logr.Warn("AUTH_ENABLED=false, API routes are unauthenticated")
	}

	router := handler.NewRouter(handler.Handlers{
		Students:    handler.NewStudentHandler(studentSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Semesters:   handler.NewSemesterHandler(semesterSvc),
		Classes:     handler.NewClassHandler(classSvc),
		Reference:   handler.NewReferenceHandler(referenceSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Transcripts: handler.NewTranscriptHandler(transcriptSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, readiness),
	}, routerCfg)

	scheduler := jobs.NewScheduler(jobs.SchedulerConfig{Timeout: 5 * time.Minute, Logger: logr})
	if err := scheduler.Register("transcript-cleanup", cfg.Transcripts.CleanupSchedule, func(ctx context.Context) error {
		_, err := transcriptSvc.Cleanup()
		return err
	}); err != nil {
		logr.Fatal("failed to schedule transcript cleanup", zap.Error(err))
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "auth", cfg.JWT.Enabled, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
