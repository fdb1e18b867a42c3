package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samafal/backend/internal/config"
	"github.com/samafal/backend/internal/handlers"
	"github.com/samafal/backend/internal/middleware"
)

// RegisterRoutes wires all route groups onto the router
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	paymentHandler *handlers.PaymentHandler,
	charityHandler *handlers.CharityHandler,
	authHandler *handlers.AuthHandler,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.GET("/me", middleware.AuthMiddleware(cfg.JWT.Secret), authHandler.Me)
	}

	SetupPaymentRoutes(router, cfg, paymentHandler)
	SetupCharityRoutes(router, cfg, charityHandler)
}

// SetupCharityRoutes sets up the campaign catalogue routes
func SetupCharityRoutes(router *gin.Engine, cfg *config.Config, charityHandler *handlers.CharityHandler) {
	public := router.Group("/api/charities")
	{
		public.GET("", charityHandler.ListPublic)
		public.GET("/:id", charityHandler.Get)
	}

	// admin lives under its own prefix so the public :id wildcard cannot
	// shadow it in the route tree
	admin := router.Group("/api/admin/charities")
	admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminMiddleware())
	{
		admin.GET("", charityHandler.ListAdmin)
		admin.GET("/:id", charityHandler.GetAdmin)
		admin.POST("", charityHandler.Create)
		admin.PUT("/:id", charityHandler.Update)
		admin.DELETE("/:id", charityHandler.Delete)
	}
}
