package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/internal/service"
	transporthttp "github.com/Sanandrew123/AICommerce/internal/transport/http"
	"github.com/Sanandrew123/AICommerce/internal/transport/http/handler"
	transportkafka "github.com/Sanandrew123/AICommerce/internal/transport/kafka"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"github.com/Sanandrew123/AICommerce/pkg/config"
	"github.com/Sanandrew123/AICommerce/pkg/db"
	"github.com/Sanandrew123/AICommerce/pkg/kafka"
	outboxrepo "github.com/Sanandrew123/AICommerce/pkg/outbox/repository"
	"github.com/Sanandrew123/AICommerce/pkg/outbox/worker"
	"github.com/Sanandrew123/AICommerce/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "storefront-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	cfg := config.MustLoad()

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.LogLevel,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresPool(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("error closing redis client: %v\n", err)
		}
	}()

	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cachedProducts := service.NewCachedProductRepository(productRepo, redisClient, cfg.Redis.CacheTTL, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	outboxRepo := outboxrepo.NewOutboxRepository(pool, logger)

	cartService := service.NewCartService(pool, cartRepo, cachedProducts, logger)
	numbers := service.NewOrderNumberGenerator(orderRepo)
	orderService := service.NewOrderService(
		pool,
		orderRepo,
		cachedProducts,
		cartRepo,
		userRepo,
		cartService,
		outboxRepo,
		numbers,
		cfg.Kafka.OrderTopic,
		logger,
	)

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			log.Printf("error closing kafka producer: %v\n", err)
		}
	}()

	outboxProcessor := worker.NewOutboxProcessor(
		pool,
		outboxRepo,
		producer,
		logger,
		cfg.Outbox.BatchSize,
		cfg.Outbox.Interval,
	)
	go outboxProcessor.Start(ctx)

	userEvents := transportkafka.NewUserEventHandler(userRepo, logger)
	consumer := kafka.NewConsumerGroup(
		cfg.Kafka.Brokers,
		cfg.Kafka.ConsumerGroup,
		[]string{cfg.Kafka.UserTopic},
		userEvents.Handle,
		logger,
	)
	go consumer.Run(ctx)

	validate := validator.New()

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 5 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &transporthttp.Handlers{
		Cart:  handler.NewCartHandler(cartService, validate),
		Order: handler.NewOrderHandler(orderService, validate),
	}
	transporthttp.RegisterRoutes(app, handlers)

	go func() {
		applog.Info(ctx, logger, "HTTP server listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("error listening on HTTP port %v: %v\n", cfg.HTTP.Port, err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	applog.Info(shutdownCtx, logger, "Shutting down storefront service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error shutting down HTTP app: %v\n", err)
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		applog.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}
}
