package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menthub/config"
	"menthub/controllers"
	"menthub/database"
	"menthub/interfaces"
	"menthub/models"
	"menthub/repositories"
	"menthub/routes"
	"menthub/services"
	"menthub/utils"
	"menthub/websocket"
	"menthub/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	redisClient := config.InitRedis(cfg)
	defer redisClient.Close()

	// Repositories
	notificationRepo := repositories.NewNotificationRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	preferenceRepo := repositories.NewPreferenceRepository(db)
	batchRepo := repositories.NewBatchRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// WebSocket hub for in-app delivery
	hub := websocket.NewHub()
	go hub.Run()

	// Services
	clock := utils.NewRealClock()
	preferenceService := services.NewPreferenceService(preferenceRepo, clock)
	templateService := services.NewTemplateService(templateRepo)
	notificationService := services.NewNotificationService(notificationRepo, templateRepo, clock)

	dispatchService := services.NewDispatchService(
		notificationRepo, templateRepo, userRepo, preferenceService, buildProviders(cfg, hub), clock)
	dispatchService.SetRetryPolicy(cfg.DispatchMaxRetries, time.Duration(cfg.DispatchRetryMinutes)*time.Minute)

	campaignService := services.NewCampaignService(
		batchRepo, templateRepo, userRepo, notificationRepo, dispatchService, redisClient, clock)
	dispatchService.SetBatchRecorder(campaignService)
	statsService := services.NewStatsService(notificationRepo)
	cleanupService := services.NewCleanupService(notificationRepo, clock)

	// Workers
	dispatchWorkerConfig := workers.DefaultDispatchWorkerConfig()
	dispatchWorkerConfig.WorkerCount = cfg.DispatchWorkers
	dispatchWorker := workers.NewDispatchWorker(dispatchService, dispatchWorkerConfig)

	campaignWorker := workers.NewCampaignWorker(batchRepo, campaignService, clock, workers.DefaultCampaignWorkerConfig())

	cleanupWorkerConfig := workers.DefaultCleanupWorkerConfig()
	cleanupWorkerConfig.SweepInterval = time.Duration(cfg.SweepIntervalMinutes) * time.Minute
	cleanupWorkerConfig.SweepBatchSize = cfg.SweepBatchSize
	cleanupWorker := workers.NewCleanupWorker(cleanupService, cleanupWorkerConfig)

	dispatchWorker.Start()
	campaignWorker.Start()
	cleanupWorker.Start()

	// Controllers and routes
	ctrl := &routes.Controllers{
		Notification: controllers.NewNotificationController(notificationService, dispatchService, dispatchWorker),
		Template:     controllers.NewTemplateController(templateService),
		Campaign:     controllers.NewCampaignController(campaignService, campaignWorker),
		Preference:   controllers.NewPreferenceController(preferenceService),
		Stats:        controllers.NewStatsController(statsService),
		WebSocket:    controllers.NewWebSocketController(hub),
	}
	router := routes.SetupRoutes(cfg, redisClient, ctrl)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("Notification engine starting on port ", cfg.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	dispatchWorker.Stop()
	campaignWorker.Stop()
	cleanupWorker.Stop()

	logrus.Info("Server shutdown complete")
}

// buildProviders wires one adapter per channel, falling back to mocks
// when external credentials are absent so local stacks still run.
func buildProviders(cfg *config.Config, hub *websocket.Hub) map[string]interfaces.ChannelProvider {
	providers := map[string]interfaces.ChannelProvider{
		models.ChannelInApp: services.NewInAppProvider(hub),
	}

	if cfg.FirebaseCredentials != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fcm, err := services.NewFCMProvider(ctx, cfg.FirebaseCredentials)
		if err != nil {
			logrus.Warnf("Push provider unavailable: %v", err)
		} else {
			providers[models.ChannelPush] = fcm
		}
	} else {
		logrus.Warn("FIREBASE_CREDENTIALS not set, push channel disabled")
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		providers[models.ChannelSMS] = services.NewTwilioProvider(
			cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	} else {
		logrus.Warn("Twilio credentials not set, SMS channel disabled")
	}

	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		providers[models.ChannelEmail] = services.NewSMTPProvider(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logrus.Warn("SMTP credentials not set, using mock email provider")
		providers[models.ChannelEmail] = services.NewMockEmailProvider()
	}

	return providers
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
