package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/CesValde/MongoCart/internal/broadcast"
	"github.com/CesValde/MongoCart/internal/cache"
	"github.com/CesValde/MongoCart/internal/config"
	"github.com/CesValde/MongoCart/internal/httpapi"
	"github.com/CesValde/MongoCart/internal/repository"
	"github.com/CesValde/MongoCart/internal/service"
	"github.com/CesValde/MongoCart/internal/web"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(context.Background())
	logrus.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")

	productRepo := repository.NewMongoProductRepository(mongoDB)
	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if err := createIndexes(ctx, productRepo, cartRepo); err != nil {
		logrus.WithError(err).Warn("failed to create indexes")
	}

	// Redis: cart cache plus the pub/sub transport behind the live feed
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Fatal("Redis connection failed")
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("connected to Redis")

	cartCache := cache.NewRedisCache(redisClient, cfg.CacheTTL)
	broker := broadcast.NewRedisBroker(redisClient, cfg.BroadcastChannel)

	publishers := []broadcast.Publisher{broker}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := broadcast.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
		logrus.WithField("brokers", cfg.KafkaBrokers).Info("Kafka publishing enabled")
	}
	publisher := broadcast.Fanout(publishers...)

	// Services
	catalogSvc := service.NewCatalogService(productRepo, publisher)
	cartSvc := service.NewCartService(cartRepo, productRepo, cartCache, publisher)

	// Live feed fed by the broker subscription
	live := httpapi.NewLiveFeed(catalogSvc, broker.Subscribe(ctx))
	go live.Run(ctx)

	views, err := web.New(catalogSvc, cartSvc)
	if err != nil {
		logrus.WithError(err).Fatal("failed to parse templates")
	}

	router := httpapi.NewRouter(
		httpapi.NewProductHandler(catalogSvc, cfg.RequestTimeout),
		httpapi.NewCartHandler(cartSvc, cfg.RequestTimeout),
		live,
		views,
		cfg.RequestTimeout,
	)

	// No WriteTimeout: the SSE feed holds its response open indefinitely.
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, "mongocart"),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.HTTPPort).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()

	logrus.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}
	logrus.Info("server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

func createIndexes(ctx context.Context, repos ...interface{}) error {
	for _, r := range repos {
		if ix, ok := r.(indexer); ok {
			if err := ix.CreateIndexes(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
