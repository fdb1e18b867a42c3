package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/samafal/backend/internal/config"
	"github.com/samafal/backend/internal/handlers"
	"github.com/samafal/backend/internal/middleware"
)

// SetupPaymentRoutes sets up payment routes. The donor endpoints and the
// provider webhook are public; the reconciliation surface is admin-only.
func SetupPaymentRoutes(router *gin.Engine, cfg *config.Config, paymentHandler *handlers.PaymentHandler) {
	limiter := middleware.NewRateLimiter(5, 10)

	public := router.Group("/api/payments")
	public.Use(limiter.Middleware())
	{
		public.POST("/mobile/initiate", paymentHandler.InitiateDonation)
		public.GET("/status/:id", paymentHandler.GetStatus)
		public.POST("/webhook", paymentHandler.Webhook)
	}

	admin := router.Group("/api/payments")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminMiddleware())
	{
		admin.GET("/admin", paymentHandler.AdminListPayments)
		admin.POST("/manual-credit/:paymentId", paymentHandler.ManualCredit)
	}
}
