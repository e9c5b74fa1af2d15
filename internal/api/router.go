package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/site-fence-backend-go/internal/config"
	"github.com/jengzang/site-fence-backend-go/internal/handler"
	"github.com/jengzang/site-fence-backend-go/internal/metrics"
	"github.com/jengzang/site-fence-backend-go/internal/middleware"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
	"github.com/jengzang/site-fence-backend-go/internal/service"
)

// Services holds the application services built over one database
type Services struct {
	Monitor   *service.MonitorService
	Fences    *service.FenceService
	Regions   *service.RegionService
	Devices   *service.DeviceService
	Alarms    *service.AlarmService
	Dashboard *service.DashboardService
}

// NewServices wires repositories and services
func NewServices(cfg *config.Config, db *sql.DB) *Services {
	fenceRepo := repository.NewFenceRepository(db)
	regionRepo := repository.NewRegionRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	alarmRepo := repository.NewAlarmRepository(db)

	monitor := service.NewMonitorService(deviceRepo, fenceRepo, alarmRepo,
		service.WithLocation(cfg.Location()),
		service.WithRecomputeWorkers(cfg.Monitor.RecomputeWorkers),
	)

	return &Services{
		Monitor:   monitor,
		Fences:    service.NewFenceService(fenceRepo, monitor),
		Regions:   service.NewRegionService(regionRepo, fenceRepo, monitor),
		Devices:   service.NewDeviceService(deviceRepo),
		Alarms:    service.NewAlarmService(alarmRepo),
		Dashboard: service.NewDashboardService(fenceRepo, deviceRepo, alarmRepo, cfg.Location()),
	}
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc *Services) *gin.Engine {
	metrics.Register()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.Metrics())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Site fence API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	fenceHandler := handler.NewFenceHandler(svc.Fences, svc.Monitor)
	regionHandler := handler.NewRegionHandler(svc.Regions)
	deviceHandler := handler.NewDeviceHandler(svc.Devices)
	alarmHandler := handler.NewAlarmHandler(svc.Alarms)
	dashboardHandler := handler.NewDashboardHandler(svc.Dashboard)

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	{
		// 项目区域
		regions := api.Group("/regions")
		{
			regions.GET("", regionHandler.List)
			regions.POST("", regionHandler.Create)
			regions.GET("/:id", regionHandler.Get)
			regions.PUT("/:id", regionHandler.Update)
			regions.DELETE("/:id", regionHandler.Delete)
		}

		// 电子围栏
		fences := api.Group("/fences")
		{
			fences.GET("", fenceHandler.List)
			fences.POST("", fenceHandler.Create)
			fences.POST("/check-status", fenceHandler.CheckStatus)
			fences.GET("/:id", fenceHandler.Get)
			fences.PUT("/:id", fenceHandler.Update)
			fences.DELETE("/:id", fenceHandler.Delete)
			fences.POST("/:id/recompute", fenceHandler.Recompute)
		}

		// 设备
		devices := api.Group("/devices")
		{
			devices.GET("", deviceHandler.List)
			devices.POST("", deviceHandler.Register)
			devices.GET("/:id", deviceHandler.Get)
		}

		// 报警记录 (no delete: history is append-only)
		alarms := api.Group("/alarms")
		{
			alarms.GET("", alarmHandler.List)
			alarms.GET("/:id", alarmHandler.Get)
			alarms.PUT("/:id", alarmHandler.Update)
		}

		api.GET("/dashboard/summary", dashboardHandler.Summary)
	}

	return r
}
