package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cache"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/cart"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/config"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/database"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/handlers"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/kafka"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/middleware"
	"github.com/thisistanishq/smart-cafeteria-solution-sub001/payment"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize database
	db, err := database.InitDB(cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis cache (menu reads survive without it)
	redisClient, err := cache.InitRedis(cfg.RedisAddr(), cfg.RedisPassword, logger)
	if err != nil {
		logger.Warn("Redis unavailable, menu cache disabled", zap.Error(err))
		redisClient = nil
	}

	// Initialize Kafka producer
	producer, err := kafka.InitProducer(cfg.KafkaBroker, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Initialize Kafka consumer
	consumer, err := kafka.InitConsumer(cfg.KafkaBroker, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Start Kafka consumer in background; cancelling the context stops the
	// loop before the deferred consumer.Close runs.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := kafka.StartConsumer(consumerCtx, consumer, cfg.KafkaTopic, db, logger); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry
	shutdown, err := middleware.InitTracing("cafeteria", cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdown()

	gateway := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, logger)
	carts := cart.NewStore()
	jwtSecret := []byte(cfg.JWTSecret)

	// Setup REST API with Gin
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware("cafeteria"))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck)

	// Metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	authHandler := handlers.NewAuthHandler(db, jwtSecret, logger)
	menuHandler := handlers.NewMenuHandler(db, redisClient, logger)
	cartHandler := handlers.NewCartHandler(db, carts, logger)
	orderHandler := handlers.NewOrderHandler(db, carts, producer, cfg.KafkaTopic, logger)
	paymentHandler := handlers.NewPaymentHandler(db, gateway, producer, cfg.KafkaTopic, logger)
	adminHandler := handlers.NewAdminHandler(db, logger)
	recommendHandler := handlers.NewRecommendHandler(db, logger)

	api := router.Group("/api")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/menu", menuHandler.ListItems)
	api.GET("/menu/:id", menuHandler.GetItem)

	api.GET("/recommendations", recommendHandler.GetRecommendations)

	authed := api.Group("/")
	authed.Use(middleware.AuthMiddleware(jwtSecret))
	{
		authed.GET("/cart", cartHandler.GetCart)
		authed.POST("/cart", cartHandler.AddItem)
		authed.PUT("/cart/:itemId", cartHandler.UpdateLine)
		authed.DELETE("/cart/:itemId", cartHandler.RemoveLine)
		authed.DELETE("/cart", cartHandler.ClearCart)

		authed.POST("/orders", orderHandler.CreateOrder)
		authed.GET("/orders", orderHandler.ListMyOrders)
		authed.GET("/orders/:id", orderHandler.GetOrder)

		authed.POST("/payment/orders", paymentHandler.CreateProviderOrder)
		authed.POST("/payment/verify", paymentHandler.VerifyPayment)
		authed.POST("/payment/wallet", paymentHandler.PayWithWallet)

		authed.GET("/recommendations/user/:id", recommendHandler.GetUserRecommendations)
	}

	staff := api.Group("/")
	staff.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRole("staff", "admin"))
	{
		staff.POST("/menu", menuHandler.CreateItem)
		staff.PUT("/menu/:id", menuHandler.UpdateItem)
		staff.DELETE("/menu/:id", menuHandler.DeleteItem)

		staff.GET("/admin/orders", orderHandler.ListAllOrders)
		staff.PATCH("/orders/:id/status", orderHandler.UpdateStatus)

		staff.GET("/admin/inventory", adminHandler.ListInventory)
		staff.POST("/admin/inventory", adminHandler.CreateInventoryItem)
		staff.PUT("/admin/inventory/:id", adminHandler.UpdateInventoryItem)
		staff.DELETE("/admin/inventory/:id", adminHandler.DeleteInventoryItem)

		staff.POST("/admin/waste", adminHandler.RecordWaste)
		staff.GET("/admin/waste", adminHandler.ListWaste)

		staff.GET("/admin/analytics/sales", adminHandler.SalesAnalytics)
	}

	admin := api.Group("/")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireRole("admin"))
	{
		admin.POST("/admin/staff", adminHandler.CreateStaff)
	}

	// Start REST server
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("Cafeteria service started", zap.String("addr", cfg.HTTPAddr))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
