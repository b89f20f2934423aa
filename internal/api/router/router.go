package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/config"
	"campus-calendar/internal/api/handler"
	"campus-calendar/internal/api/middleware"
	"campus-calendar/internal/model"
	"campus-calendar/pkg/jwt"
	"campus-calendar/pkg/metrics"
	"campus-calendar/pkg/redis"
)

// importMaxBytes ICS 与 Excel 导入允许的请求体上限
const importMaxBytes = 5 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthCheck(db, rdb))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limit := func() gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth", middleware.BodyLimit(cfg.Server.MaxBodyBytes), limit())
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb), limit())

		// 文件导入单独放宽请求体上限
		authorized.POST("/calendars/:id/import",
			middleware.BodyLimit(importMaxBytes), h.Import.ImportICS)
		authorized.POST("/users/import",
			middleware.RoleAuth(model.RoleAdmin), middleware.BodyLimit(importMaxBytes), h.User.ImportUsers)

		api := authorized.Group("", middleware.BodyLimit(cfg.Server.MaxBodyBytes))
		{
			// 认证模块（需要认证）
			api.POST("/auth/logout", h.Auth.Logout)
			api.GET("/auth/me", h.Auth.GetCurrentUser)

			// 日历模块
			calendars := api.Group("/calendars/:id")
			{
				calendars.POST("/events", h.Event.CreateEvent)
				calendars.GET("/categories", h.Category.ListCategories)
				calendars.POST("/categories", middleware.RoleAuth(model.RoleAdmin, model.RolePublisher), h.Category.CreateCategory)
				calendars.PUT("/categories/:categoryId", middleware.RoleAuth(model.RoleAdmin, model.RolePublisher), h.Category.UpdateCategory)
				calendars.DELETE("/categories/:categoryId", middleware.RoleAuth(model.RoleAdmin, model.RolePublisher), h.Category.DeleteCategory)
				calendars.PUT("/subscription", h.Subscription.UpdateSubscription)
				calendars.GET("/export.ics", h.Export.ExportICS)
				calendars.GET("/export.xlsx", middleware.RoleAuth(model.RoleAdmin, model.RolePublisher), h.Export.ExportXLSX)
			}

			api.GET("/subscriptions", h.Subscription.ListSubscriptions)

			// 审批渠道配置（仅管理员）
			channels := api.Group("/approval-channels", middleware.RoleAuth(model.RoleAdmin))
			{
				channels.GET("", h.Channels.ListChannelConfigs)
				channels.PUT("/:channel", h.Channels.UpdateChannelConfig)
			}

			// 用户管理（仅管理员）
			users := api.Group("/users", middleware.RoleAuth(model.RoleAdmin))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.PUT("/:id/role", h.User.AssignRole)
				users.POST("/:id/reset-password", h.User.ResetPassword)
				users.DELETE("/:id", h.User.DeleteUser)
			}

			// 场地模块
			locations := api.Group("/locations")
			{
				locations.GET("", h.Location.ListLocations)
				locations.GET("/:id", h.Location.GetLocation)
				locations.POST("", middleware.RoleAuth(model.RoleAdmin), h.Location.CreateLocation)
				locations.PUT("/:id", middleware.RoleAuth(model.RoleAdmin), h.Location.UpdateLocation)
				locations.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.Location.DeleteLocation)
			}

			// 日程模块
			events := api.Group("/events")
			{
				events.GET("", h.Event.ListEvents)
				events.GET("/:id", h.Event.GetEvent)
				events.PUT("/:id", h.Event.UpdateEvent)   // 创建者或发布者（Service 层鉴权）
				events.DELETE("/:id", h.Event.DeleteEvent) // 同上
				events.POST("/:id/submit", h.Event.SubmitEvent)
				events.GET("/:id/approvals", h.Event.ListApprovals)
				events.POST("/:id/approvals/:channel/approve", middleware.RoleAuth(model.RoleAdmin), h.Event.ApproveEvent)
				events.POST("/:id/approvals/:channel/reject", middleware.RoleAuth(model.RoleAdmin), h.Event.RejectEvent)
			}
		}
	}

	return r
}

// healthCheck 检查数据库与 Redis 连通性；Redis 未配置时不影响健康状态
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		code := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status["status"], status["database"] = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx); err != nil {
				status["redis"] = "unreachable"
			}
		}

		c.JSON(code, status)
	}
}
