package handler

import (
	"rechargesystem/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, verifier service.CredentialVerifier, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))

	api := r.Group("/api/v1")
	{
		recharge := api.Group("/recharge")
		{
			recharge.POST("/create", h.CreateRecharge)
			recharge.GET("/detail", h.GetRecharge)
			recharge.GET("/list", h.ListRecharges)
		}

		admin := api.Group("/admin/recharge", ActorMiddleware())
		{
			admin.POST("/create", h.AdminCreateRecharge)
			admin.POST("/waiting", h.MarkWaiting)
			admin.POST("/approve", h.Approve)
			admin.POST("/cancel", h.Cancel)
		}

		notify := api.Group("/notify")
		{
			notify.POST("/bank", APIKeyMiddleware(verifier), h.BankNotification)
			notify.POST("/auto-approve", h.AutoApprove)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
