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
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-scheduler/api/swagger"
	"github.com/noah-isme/academy-scheduler/internal/handler"
	"github.com/noah-isme/academy-scheduler/internal/repository"
	"github.com/noah-isme/academy-scheduler/internal/service"
	"github.com/noah-isme/academy-scheduler/pkg/cache"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/database"
	"github.com/noah-isme/academy-scheduler/pkg/export"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
	"github.com/noah-isme/academy-scheduler/pkg/logger"
)

// @title Academy Scheduler API
// @version 1.0.0
// @description Scheduling engine for tutoring academies: class assignment, conflict resolution, optimization and make-up suggestions.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const sweepInterval = time.Minute

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	ready := map[string]handler.Pinger{"database": db}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		defer redisClient.Close()
		redisRepo := repository.NewCacheRepository(redisClient, logr)
		cacheRepo = redisRepo
		ready["redis"] = redisRepo
	}

	var scheduler *service.SchedulingService
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService(func() int { return scheduler.QueueDepth() })
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.ResultTTL, logr, redisClient != nil)

	classes := repository.NewClassRepository(db)
	teachers := repository.NewTeacherRepository(db)
	teacherPrefs := repository.NewTeacherPreferenceRepository(db)
	courses := repository.NewCourseRepository(db)
	studentPrefs := repository.NewStudentPreferenceRepository(db)

	engineConfig, err := service.NewEngineConfigService(
		service.EngineConfigFromSettings(cfg.Scheduler, cfg.MakeUp),
		repository.NewConfigurationRepository(db),
		logr,
	)
	if err != nil {
		logr.Fatal("invalid engine configuration", zap.Error(err))
	}
	if err := engineConfig.Load(ctx); err != nil {
		logr.Fatal("failed to load stored engine configuration", zap.Error(err))
	}

	content := service.NewContentService(repository.NewSimilarityRepository(db), cacheSvc, cfg.Similarity.CacheTTL, logr)
	optimizer := service.NewOptimizationService(engineConfig, repository.NewRatingRepository(db), teachers, teacherPrefs, metrics, logr)
	scheduler = service.NewSchedulingService(
		service.SchedulingRepositories{
			Students:           repository.NewStudentRepository(db),
			Courses:            courses,
			Teachers:           teachers,
			TeacherPreferences: teacherPrefs,
			Progress:           repository.NewStudentProgressRepository(db),
			Preferences:        studentPrefs,
			Classes:            classes,
		},
		engineConfig,
		content,
		optimizer,
		cacheSvc,
		validator.New(),
		metrics,
		logr,
		service.SchedulingServiceConfig{
			ResultTTL:      cfg.Scheduler.ResultTTL,
			RequestTimeout: cfg.Scheduler.RequestTimeout,
		},
	)

	if cfg.Scheduler.Enabled {
		queue := jobs.NewQueue("scheduling", scheduler.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Scheduler.QueueWorkers,
			BufferSize: cfg.Scheduler.QueueBuffer,
			MaxRetries: cfg.Scheduler.QueueRetries,
			OnDiscard:  scheduler.DiscardJob,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		scheduler.UseQueue(queue)
	}
	go sweepResults(ctx, scheduler, logr)

	deps := routeDeps{
		scheduling: scheduler,
		optimizer:  optimizer,
		makeUp:     service.NewMakeUpService(classes, courses, studentPrefs, content, engineConfig, metrics, logr),
		exporter:   service.NewExportService(scheduler, logr, export.NewCSVExporter(), export.NewPDFExporter()),
		config:     engineConfig,
		health:     service.NewHealthService(scheduler),
		tokens:     service.NewTokenService(cfg.JWT.Secret),
		metrics:    metrics,
		ready:      ready,
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, logr, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func sweepResults(ctx context.Context, scheduler *service.SchedulingService, logr *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := scheduler.SweepResults(); n > 0 {
				logr.Debug("expired scheduling results swept", zap.Int("count", n))
			}
		}
	}
}
