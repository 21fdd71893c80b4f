package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/handler"
	"github.com/noah-isme/academy-scheduler/internal/middleware"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-scheduler/pkg/middleware/requestid"
)

type routeDeps struct {
	scheduling *service.SchedulingService
	optimizer  *service.OptimizationService
	makeUp     *service.MakeUpService
	exporter   *service.ExportService
	config     *service.EngineConfigService
	health     *service.HealthService
	tokens     *service.TokenService
	metrics    *service.MetricsService
	ready      map[string]handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.metrics != nil {
		r.Use(middleware.Metrics(deps.metrics, "/health", "/ready", "/metrics"))
	}

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.health, deps.ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if deps.metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	schedulingHandler := handler.NewSchedulingHandler(deps.scheduling, deps.exporter, deps.optimizer)
	makeUpHandler := handler.NewMakeUpHandler(deps.makeUp)
	configHandler := handler.NewConfigurationHandler(deps.config)

	api := r.Group(cfg.APIPrefix, middleware.OptionalJWT(deps.tokens))
	scheduling := api.Group("/scheduling")
	{
		scheduling.POST("/requests", schedulingHandler.Schedule)
		scheduling.POST("/requests/async", schedulingHandler.ScheduleAsync)
		scheduling.GET("/requests/:id", schedulingHandler.Get)
		scheduling.POST("/requests/:id/commit", schedulingHandler.Commit)
		scheduling.GET("/requests/:id/export", schedulingHandler.Export)
		scheduling.POST("/optimize", schedulingHandler.Optimize)
		scheduling.GET("/health", metricsHandler.EngineHealth)

		admin := scheduling.Group("/config", middleware.JWT(deps.tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
		admin.GET("", configHandler.Get)
		admin.PATCH("", configHandler.Update)
		admin.GET("/history", configHandler.History)
	}
	api.POST("/makeup/suggestions", makeUpHandler.Suggest)

	return r
}
