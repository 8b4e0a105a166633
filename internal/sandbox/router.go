package sandbox

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reward-core/internal/handler/response"
	"reward-core/pkg/logger"
	"reward-core/pkg/monitor"
)

// NewRouter 初始化并返回 sandbox 的 Gin Engine
func NewRouter(h *Handler) *gin.Engine {
	// 0. 初始化监控指标
	monitor.Init()

	// 1. 创建 Engine
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "UP", "service": "reward-sandbox"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4. 认证
	r.POST("/auth/login/", h.Login)

	// 5. 奖励发放接口 (需要 Bearer token)
	rewards := r.Group("/admin/rewards", h.Auth())
	{
		rewards.GET("/projects/", h.ListProjects)
		rewards.GET("/project/:id/wallets/", h.ListWallets)
		rewards.POST("/project/:id/wallets/", h.SubmitWallets)
		rewards.GET("/project/:id/preview/", h.Preview)
		rewards.POST("/project/:id/distribute/", h.Distribute)
		rewards.GET("/distribution/:id/status/", h.DistributionStatus)
		rewards.GET("/audit-trail/", h.AuditTrail)
		rewards.GET("/audit-trail/export/", h.AuditExport)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("sandbox request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
