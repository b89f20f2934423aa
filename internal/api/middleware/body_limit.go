package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-calendar/pkg/response"
)

// BodyLimit 请求体大小限制中间件
//
// 声明了 Content-Length 且超限的请求直接返回 413；
// 分块上传等未声明长度的请求由 MaxBytesReader 在读取时截断，处理器按参数错误返回。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.RequestEntityTooLarge(c)
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
