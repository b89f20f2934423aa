package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-calendar/pkg/metrics"
)

// Metrics Prometheus HTTP 指标中间件
// 以路由模板（c.FullPath）作为标签，避免路径参数导致标签基数膨胀
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start).Seconds())
	}
}
