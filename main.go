package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/config"
	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/handlers"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/cached"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/casdoor"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/memory"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/mongodb"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/postgres"
	"github.com/SAP-F-2025/learning-assessment/internal/services"
	"github.com/SAP-F-2025/learning-assessment/internal/utils"
	"github.com/SAP-F-2025/learning-assessment/internal/validator"
	"github.com/SAP-F-2025/learning-assessment/pkg"
	"github.com/SAP-F-2025/learning-assessment/pkg/monitoring"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(utils.LogSink(os.Stdout, cfg.LogFile), &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	monitoring.Init()

	// Redis is optional: content caching and the unlock marker degrade without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	var (
		repoManager repositories.RepositoryManager
		mongoClient *mongo.Client
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore(samplerRand(cfg))
		seedDemoContent(store)
		repoManager = memory.NewManager(store)
		logger.Warn("Using in-memory store, data is lost on restart")
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		mongoClient, err = pkg.NewMongoClient(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize content store: %v", err)
		}
		content := cached.NewContentRepository(mongodb.NewContentMongo(mongoClient, cfg.MongoDatabase), cacheManager)

		repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: redisClient,
			Content:     content,
			AutoMigrate: cfg.AutoMigrate,
		})
	}
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	publisher, err := newEventPublisher(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	serviceConfig := services.DefaultServiceManagerConfig()
	serviceConfig.EnableExport = cfg.EnableExport
	serviceManager := services.NewServiceManager(services.ServiceManagerDeps{
		Repo:      repoManager.GetRepository(),
		Cache:     cacheManager,
		Publisher: publisher,
		Logger:    slogLogger,
		Validator: validator.New(),
		Rng:       samplerRand(cfg),
	}, serviceConfig)
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	userRepo := casdoor.NewUserCasdoor(casdoor.CasdoorConfig{
		Endpoint:         cfg.Casdoor.Endpoint,
		ClientID:         cfg.Casdoor.ClientID,
		ClientSecret:     cfg.Casdoor.ClientSecret,
		Certificate:      cfg.Casdoor.Cert,
		OrganizationName: cfg.Casdoor.Organization,
		ApplicationName:  cfg.Casdoor.Application,
	}, cacheManager)
	authMiddleware := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, userRepo, logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, authMiddleware, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, handlers.MiddlewareConfig{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestTimeout: cfg.RequestTimeout,
	})
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}

// newEventPublisher uses Kafka when brokers are configured, otherwise an
// in-process channel whose messages are logged
func newEventPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		return events.NewKafkaEventPublisher(cfg.KafkaBrokers, logger)
	}

	publisher, channel := events.NewInProcessEventPublisher(logger)
	for _, topic := range []string{events.TopicLearningActivity, events.TopicCertificates} {
		if err := logEvents(channel, topic, logger); err != nil {
			return nil, err
		}
	}
	return publisher, nil
}

func logEvents(channel *gochannel.GoChannel, topic string, logger *slog.Logger) error {
	messages, err := channel.Subscribe(context.Background(), topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	go func() {
		for msg := range messages {
			logger.Debug("Event", "topic", topic, "event_type", msg.Metadata.Get("event_type"), "payload", string(msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}

func samplerRand(cfg *config.Config) *rand.Rand {
	if cfg.SamplerSeed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(cfg.SamplerSeed, cfg.SamplerSeed>>1|1))
}

// seedDemoContent gives the in-memory store one course to play with
func seedDemoContent(store *memory.Store) {
	modules := []models.CourseModule{
		{ID: "road-signs", Name: "Road Signs"},
		{ID: "right-of-way", Name: "Right of Way"},
		{ID: "parking", Name: "Parking"},
	}
	store.AddCourse("demo-course", modules...)
	for _, m := range modules {
		for i := 1; i <= 8; i++ {
			qType := models.QuestionMCQ
			if i%2 == 0 {
				qType = models.QuestionTrueFalse
			}
			store.AddQuestions(models.QuestionRef{
				ID:       fmt.Sprintf("%s-%d", m.ID, i),
				ModuleID: m.ID,
				Type:     qType,
				Active:   true,
			})
		}
	}
}
