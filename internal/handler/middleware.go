package handler

import (
	"time"

	"rechargesystem/internal/service"
	"rechargesystem/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderActor  = "X-Actor"
	HeaderAPIKey = "X-Api-Key"

	ctxKeyActor = "actor"
)

// LoggerMiddleware 请求日志
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("HTTP",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("PANIC", zap.Any("error", err), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// ActorMiddleware 读取网关认证后的管理员身份
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader(HeaderActor)
		if username == "" {
			response.Unauthorized(c, "缺少操作人")
			return
		}
		c.Set(ctxKeyActor, service.Actor{Username: username, IP: c.ClientIP()})
		c.Next()
	}
}

func actorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(ctxKeyActor); ok {
		if actor, ok := v.(service.Actor); ok {
			return actor
		}
	}
	return service.Actor{IP: c.ClientIP()}
}

// APIKeyMiddleware 短信转发程序使用共享密钥访问
func APIKeyMiddleware(verifier service.CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := verifier.Verify(service.Credential(c.GetHeader(HeaderAPIKey))); err != nil {
			response.Unauthorized(c, err.Error())
			return
		}
		c.Next()
	}
}
