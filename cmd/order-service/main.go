// Command order-service runs the order-fulfillment pipeline: the HTTP
// submission gate, the Kafka-backed order queue, and the processing workers.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"stockpile/internal/order/application"
	"stockpile/internal/order/domain"
	"stockpile/internal/order/infrastructure"
	"stockpile/internal/order/interfaces"
	"stockpile/internal/pkg/bootstrap"
	"stockpile/internal/pkg/config"
	"stockpile/internal/pkg/logger"
	"stockpile/internal/pkg/mq"
	"stockpile/internal/pkg/tracing"
)

const serviceName = "order-service"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(serviceName, cfg.LogLevel)
	ctx := context.Background()

	shutdownTracing := func(context.Context) {}
	if cfg.Jaeger.Enabled {
		tp, err := tracing.InitTracerProvider(serviceName, cfg.Jaeger.Endpoint)
		if err != nil {
			logger.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize tracing")
		}
		shutdownTracing = func(c context.Context) {
			if err := tp.Shutdown(c); err != nil {
				logger.Ctx(c).Error().Err(err).Msg("tracer provider shutdown failed")
			}
		}
	}
	tracer := otel.Tracer(serviceName)

	var (
		users    domain.UserRepository
		products domain.ProductRepository
		orders   domain.OrderRepository
		status   domain.JobStatusStore
	)
	switch cfg.Backend {
	case "memory":
		store := infrastructure.NewMemoryStore()
		seed(store, cfg.Seed)
		users, products, orders = store, store, store
		status = infrastructure.NewMemoryJobStatusStore()
	default:
		db, err := infrastructure.NewMySQL(cfg.MySQL.DSN, cfg.MySQL.AutoMigrate)
		if err != nil {
			logger.Ctx(ctx).Fatal().Err(err).Msg("failed to open mysql")
		}
		users = infrastructure.NewGormUserRepository(db)
		products = infrastructure.NewGormProductRepository(db)
		orders = infrastructure.NewGormOrderRepository(db)
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		status = infrastructure.NewRedisJobStatusStore(rdb, cfg.Redis.StatusTTL.Std())
	}

	orderWriter := mq.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	dltWriter := mq.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.DeadLetterTopic)
	producer := infrastructure.NewOrderJobProducer(orderWriter)
	failures := mq.NewFailureHandler(dltWriter)

	service := application.NewService(users, products, orders, producer, status, tracer)
	processor := application.NewProcessor(users, products, orders, status, tracer)

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(consumerCtx)
	consumers := make([]*infrastructure.OrderConsumer, 0, cfg.Worker.Count)
	for i := 0; i < cfg.Worker.Count; i++ {
		reader := mq.NewReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrderTopic)
		consumer := infrastructure.NewOrderConsumer(reader, processor, failures, status, infrastructure.ConsumerConfig{
			MaxAttempts:  cfg.Worker.MaxAttempts,
			RetryBackoff: cfg.Worker.RetryBackoff.Std(),
		}, tracer)
		consumers = append(consumers, consumer)
		group.Go(func() error { return consumer.Run(groupCtx) })
	}

	handler := interfaces.NewOrderHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:     serviceName,
		Addr:            cfg.HTTPAddr,
		ShutdownTimeout: cfg.ShutdownTimeout.Std(),
		RegisterHandlers: func(mux *http.ServeMux) {
			handler.RegisterRoutes(mux)
		},
		OnShutdown: func(c context.Context) {
			stopConsumers()
			if err := group.Wait(); err != nil {
				logger.Ctx(c).Error().Err(err).Msg("consumer group exited with error")
			}
			for _, consumer := range consumers {
				if err := consumer.Close(); err != nil {
					logger.Ctx(c).Error().Err(err).Msg("failed to close consumer")
				}
			}
			if err := orderWriter.Close(); err != nil {
				logger.Ctx(c).Error().Err(err).Msg("failed to close order writer")
			}
			if err := dltWriter.Close(); err != nil {
				logger.Ctx(c).Error().Err(err).Msg("failed to close dead-letter writer")
			}
			shutdownTracing(c)
		},
	})
}

func seed(store *infrastructure.MemoryStore, s config.SeedConfig) {
	for _, u := range s.Users {
		store.AddUser(domain.User{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	for _, p := range s.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			logger.Ctx(context.Background()).Warn().
				Str("product", p.Name).
				Str("price", p.Price).
				Msg("skipping seed product with invalid price")
			continue
		}
		store.AddProduct(domain.Product{ID: p.ID, Name: p.Name, Price: price, Stock: p.Stock})
	}
}
