// routes/routes.go
package routes

import (
	"time"

	"menthub/config"
	"menthub/controllers"
	"menthub/middleware"
	"menthub/models"
	"menthub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Notification *controllers.NotificationController
	Template     *controllers.TemplateController
	Campaign     *controllers.CampaignController
	Preference   *controllers.PreferenceController
	Stats        *controllers.StatsController
	WebSocket    *controllers.WebSocketController
}

// SetupRoutes builds the gin engine with global middleware and all route
// groups mounted.
func SetupRoutes(cfg *config.Config, redisClient *redis.Client, ctrl *Controllers) *gin.Engine {
	router := gin.New()

	authMiddleware := middleware.NewAuthMiddleware(utils.NewJWTService(cfg.JWTSecret))
	errorHandler := middleware.NewErrorHandler(cfg.Environment)
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Redis:     redisClient,
		Requests:  cfg.RateLimitRequests,
		Window:    time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
		SkipPaths: []string{"/health"},
	})

	router.Use(errorHandler.Handle())
	router.Use(middleware.LoggerMiddleware("/health"))
	router.Use(middleware.CORSMiddleware(middleware.DefaultCORSConfig()))
	router.Use(rateLimiter.Middleware())

	router.GET("/health", healthCheck(cfg))

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())

	setupNotificationRoutes(v1, ctrl.Notification, authMiddleware)
	setupTemplateRoutes(v1, ctrl.Template, authMiddleware)
	setupCampaignRoutes(v1, ctrl.Campaign, authMiddleware)
	setupPreferenceRoutes(v1, ctrl.Preference)
	setupStatsRoutes(v1, ctrl.Stats, authMiddleware)

	v1.GET("/ws", ctrl.WebSocket.Stream)

	return router
}

func setupNotificationRoutes(router *gin.RouterGroup, nc *controllers.NotificationController, auth *middleware.AuthMiddleware) {
	notifications := router.Group("/notifications")

	notifications.GET("", nc.GetNotifications)
	notifications.GET("/unread-count", nc.GetUnreadCount)
	notifications.PUT("/read-all", nc.MarkAllAsRead)
	notifications.GET("/:id", nc.GetNotification)
	notifications.PUT("/:id/read", nc.MarkAsRead)
	notifications.PUT("/:id/clicked", nc.MarkAsClicked)
	notifications.PUT("/:id/dismissed", nc.MarkAsDismissed)

	// Issuing and managing notifications is reserved for platform services
	// and admins.
	privileged := notifications.Group("")
	privileged.Use(auth.RequireRole("admin", "service"))
	{
		privileged.POST("", nc.CreateNotification)
		privileged.POST("/from-template", nc.CreateFromTemplate)
		privileged.PUT("/:id", nc.UpdateNotification)
		privileged.DELETE("/:id", nc.DeleteNotification)
		privileged.POST("/:id/delivery/:channel", nc.ConfirmDelivery)
	}
}

func setupTemplateRoutes(router *gin.RouterGroup, tc *controllers.TemplateController, auth *middleware.AuthMiddleware) {
	templates := router.Group("/templates")
	templates.Use(auth.RequireRole("admin", "service"))

	templates.POST("", tc.CreateTemplate)
	templates.GET("", tc.GetTemplatesByType)
	templates.GET("/:id", tc.GetTemplate)
	templates.PUT("/:id", tc.UpdateTemplate)
	templates.POST("/:id/preview", tc.PreviewTemplate)
}

func setupCampaignRoutes(router *gin.RouterGroup, cc *controllers.CampaignController, auth *middleware.AuthMiddleware) {
	campaigns := router.Group("/campaigns")
	campaigns.Use(auth.RequireRole("admin", "service"))

	campaigns.POST("", cc.CreateBatch)
	campaigns.GET("/:id", cc.GetBatch)
	campaigns.PUT("/:id/schedule", cc.ScheduleBatch)
	campaigns.POST("/:id/send", cc.SendBatch)
	campaigns.POST("/:id/cancel", cc.CancelBatch)
}

func setupPreferenceRoutes(router *gin.RouterGroup, pc *controllers.PreferenceController) {
	preferences := router.Group("/preferences")

	preferences.GET("", pc.GetPreferences)
	preferences.PUT("", pc.UpdatePreferences)
}

func setupStatsRoutes(router *gin.RouterGroup, sc *controllers.StatsController, auth *middleware.AuthMiddleware) {
	stats := router.Group("/stats")

	stats.GET("/me", sc.GetMyStats)
	stats.GET("/global", auth.RequireRole("admin"), sc.GetGlobalStats)
}

func healthCheck(cfg *config.Config) gin.HandlerFunc {
	startTime := time.Now()

	return func(c *gin.Context) {
		c.JSON(200, models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Services: map[string]string{
				"api": "up",
			},
			Version: cfg.Version,
			Uptime:  time.Since(startTime).String(),
		})
	}
}
