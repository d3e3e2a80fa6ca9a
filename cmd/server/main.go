package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentnest/service-rental/internal/application"
	"github.com/rentnest/service-rental/internal/config"
	bookingDomain "github.com/rentnest/service-rental/internal/domain/booking"
	propertyDomain "github.com/rentnest/service-rental/internal/domain/property"
	rentalEvents "github.com/rentnest/service-rental/internal/events"
	"github.com/rentnest/service-rental/internal/handler"
	"github.com/rentnest/service-rental/internal/metrics"
	"github.com/rentnest/service-rental/internal/repository"
	"github.com/rentnest/service-rental/internal/storage"
	"github.com/rentnest/service-rental/pkg/auth"
	"github.com/rentnest/service-rental/pkg/database"
	"github.com/rentnest/service-rental/pkg/health"
	"github.com/rentnest/service-rental/pkg/kafka"
	"github.com/rentnest/service-rental/pkg/logger"
	"github.com/rentnest/service-rental/pkg/middleware"
)

const serviceName = "service-rental"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.PropertyModel{}, &repository.ImageModel{}, &repository.BookingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := health.NewHandler(db, serviceName)

	// Initialize repositories; the property lookup is cached when Redis is configured
	bookingRepo := repository.NewGormBookingRepository(db)
	imageRepo := repository.NewGormImageRepository(db)
	var propertyRepo propertyDomain.PropertyRepository = repository.NewGormPropertyRepository(db)
	if cfg.RedisConfig.Addr != "" {
		redisClient, err := repository.NewRedisClient(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, cfg.RedisConfig.DB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()

		cached := repository.NewCachedPropertyRepository(propertyRepo, redisClient, cfg.RedisConfig.TTL, log)
		healthHandler.AddChecker("redis", cached.Ping)
		propertyRepo = cached
		log.Info("property cache enabled", zap.String("addr", cfg.RedisConfig.Addr))
	}

	// Initialize image storage
	blobStore, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL, log)
	if err != nil {
		log.Fatal("failed to initialize image storage", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	serviceMetrics := metrics.New()

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		propertyRepo,
		bookingDomain.NewMonthlyProrationStrategy(),
		kafkaProducer,
		serviceMetrics,
		log,
	)
	propertyService := application.NewPropertyService(propertyRepo, serviceMetrics, cfg.DefaultCurrency, log)
	imageService := application.NewImageService(imageRepo, propertyRepo, blobStore, cfg.Upload.MaxBytes, serviceMetrics, log)
	reportService := application.NewReportService(bookingRepo, log)

	// Initialize and start payment event consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "rental-service"
	paymentConsumer := rentalEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxBytes + 1<<20

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(serviceMetrics.Middleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins...))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register probes, metrics and uploaded images
	healthHandler.RegisterRoutes(router)
	serviceMetrics.RegisterRoutes(router)
	router.Static(cfg.Upload.BaseURL, blobStore.Root())

	// Register routes
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewPropertyHandler(propertyService, imageService).RegisterRoutes(&router.RouterGroup, jwtManager)
	handler.NewAdminHandler(bookingService, propertyService, reportService).RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
