package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/salonflow/queue-backend/internal/config"
	"github.com/salonflow/queue-backend/internal/database"
	"github.com/salonflow/queue-backend/internal/handlers"
	"github.com/salonflow/queue-backend/internal/middleware"
	"github.com/salonflow/queue-backend/internal/services"
	"github.com/salonflow/queue-backend/pkg/jwt"
	"github.com/salonflow/queue-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SalonFlow Queue Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	queueRepo := database.NewQueueRepository(db)
	entryRepo := database.NewEntryRepository(db)
	taskRepo := database.NewTaskRepository(db)
	providerRepo := database.NewProviderRepository(db)
	appointmentRepo := database.NewAppointmentRepository(db)
	businessRepo := database.NewBusinessRepository(db)

	// Initialize notification pipeline
	var gateway notify.Gateway
	if cfg.Notify.Mode == "production" {
		gateway = notify.NewHTTPGateway(notify.HTTPConfig{
			APIURL:   cfg.Notify.APIURL,
			APIToken: cfg.Notify.APIToken,
			SenderID: cfg.Notify.SenderID,
			Timeout:  time.Duration(cfg.Notify.TimeoutSec) * time.Second,
		})
	} else {
		gateway = notify.NewConsoleGateway(logger)
	}
	dispatcher := notify.NewDispatcher(gateway, logger, cfg.Notify.QueueSize)
	defer dispatcher.Close()

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	matcherService := services.NewMatcherService(providerRepo, logger)
	notificationPolicy := services.NewNotificationPolicy(entryRepo, dispatcher, logger)
	delayService := services.NewDelayService(appointmentRepo, dispatcher, logger, cfg.Schedule.DelayThresholdMins)
	queueService := services.NewQueueService(queueRepo, entryRepo, taskRepo, businessRepo,
		matcherService, notificationPolicy, cfg.Schedule, logger)
	appointmentService := services.NewAppointmentService(appointmentRepo, entryRepo, taskRepo,
		queueRepo, businessRepo, queueService, notificationPolicy, cfg.Schedule, logger)
	queueService.SetAppointmentMirror(appointmentService)
	taskService := services.NewTaskService(taskRepo, entryRepo, queueRepo,
		matcherService, notificationPolicy, delayService, queueService, logger)
	providerService := services.NewProviderService(providerRepo, logger)
	businessService := services.NewBusinessService(businessRepo, queueRepo, logger)

	// Initialize handlers
	publicHandler := handlers.NewPublicHandler(queueService, businessService)
	queueHandler := handlers.NewQueueHandler(queueService, businessService)
	taskHandler := handlers.NewTaskHandler(taskService)
	providerHandler := handlers.NewProviderHandler(providerService, delayService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public, unauthenticated routes
		public := v1.Group("/public")
		{
			public.POST("/queues/:id/join", publicHandler.JoinQueue)
			public.GET("/status/:token", publicHandler.GetStatus)
			public.GET("/businesses/:id", publicHandler.GetBusinessDisplay)
			public.POST("/appointments", appointmentHandler.Book)
		}

		// Owner/staff routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			protected.GET("/queues/:id/entries", queueHandler.ListEntries)
			protected.POST("/queues/:id/reset", queueHandler.ResetDay)
			protected.PATCH("/entries/:id/status", queueHandler.TransitionEntry)
			protected.POST("/entries/:id/skip", queueHandler.SkipEntry)
			protected.POST("/entries/:id/no-show", queueHandler.MarkNoShow)
			protected.GET("/entries/:id/tasks", taskHandler.ListByEntry)

			protected.POST("/tasks/:id/assign", taskHandler.AssignProvider)
			protected.POST("/tasks/:id/start", taskHandler.StartTask)
			protected.POST("/tasks/:id/complete", taskHandler.CompleteTask)

			protected.POST("/providers", providerHandler.Create)
			protected.GET("/providers/:id", providerHandler.Get)
			protected.PUT("/providers/:id", providerHandler.Update)
			protected.DELETE("/providers/:id", providerHandler.Delete)
			protected.PUT("/providers/:id/capabilities", providerHandler.SetCapabilities)
			protected.POST("/providers/:id/leaves", providerHandler.AddLeave)
			protected.GET("/providers/:id/leaves", providerHandler.ListLeaves)
			protected.DELETE("/providers/:id/leaves/:leaveId", providerHandler.RemoveLeave)
			protected.POST("/providers/:id/delays/recompute", providerHandler.RecomputeDelays)

			protected.GET("/businesses/:id/providers", providerHandler.ListByBusiness)
			protected.GET("/businesses/:id/providers/availability", providerHandler.Availability)
			protected.GET("/businesses/:id/appointments", appointmentHandler.ListForDay)
			protected.PUT("/businesses/:id/hours", queueHandler.UpdateBusinessHours)

			protected.GET("/appointments/:id", appointmentHandler.Get)
			protected.PATCH("/appointments/:id/status", appointmentHandler.UpdateStatus)
		}
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		ua := user_agent.New(c.Request.UserAgent())
		browser, _ := ua.Browser()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"browser":    browser,
			"os":         ua.OS(),
			"mobile":     ua.Mobile(),
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
