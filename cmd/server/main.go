package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/broker"
	"github.com/aegean-labs/stockroom/internal/catalog"
	feedPkg "github.com/aegean-labs/stockroom/internal/feed"
	feedHandlerPkg "github.com/aegean-labs/stockroom/internal/feed/handler"
	invHandlerPkg "github.com/aegean-labs/stockroom/internal/inventory/handler"
	invListenerPkg "github.com/aegean-labs/stockroom/internal/inventory/listener"
	invRepoPkg "github.com/aegean-labs/stockroom/internal/inventory/repository"
	invUCPkg "github.com/aegean-labs/stockroom/internal/inventory/usecase"
	"github.com/aegean-labs/stockroom/internal/db"
	"github.com/aegean-labs/stockroom/internal/logger"
	runRepoPkg "github.com/aegean-labs/stockroom/internal/runlog/repository"
	"github.com/aegean-labs/stockroom/internal/search"
	"github.com/aegean-labs/stockroom/internal/syncer"
	syncHandlerPkg "github.com/aegean-labs/stockroom/internal/syncer/handler"
	"github.com/aegean-labs/stockroom/internal/syncer/state"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(&cfg.Logger, cfg.Server.AppEnv)
	defer appLogger.Sync()

	// 3. Open Database
	conn, err := db.Open(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("could not open database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.EnsureSchema(conn); err != nil {
		appLogger.Fatal("could not apply schema", zap.Error(err))
	}
	appLogger.Info("database ready", zap.String("path", cfg.SQLite.Path))

	// 4. Initialize Repositories
	invRepo := invRepoPkg.NewSQLiteRepository(conn)
	runRepo := runRepoPkg.NewSQLiteRepository(conn)

	// 5. State Store and Lease
	var (
		stateStore syncer.StateStore
		lease      syncer.Lease
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		redisStore := state.NewRedisStore(redisClient, appLogger)
		stateStore, lease = redisStore, redisStore
		appLogger.Info("using redis sync state", zap.String("addr", cfg.Redis.Addr))
	} else {
		memStore := state.NewMemoryStore()
		stateStore, lease = memStore, memStore
		appLogger.Info("using in-memory sync state")
	}

	// 6. Initialize Elasticsearch
	var esClient *search.Client
	if cfg.Elastic.Enabled {
		esClient, err = search.NewClient(&cfg.Elastic, appLogger)
		if err != nil {
			appLogger.Warn("could not connect to Elasticsearch, search degraded to local store", zap.Error(err))
			esClient = nil
		} else {
			if err := esClient.EnsureIndex(context.Background()); err != nil {
				appLogger.Warn("could not ensure search index", zap.Error(err))
			}
			appLogger.Info("connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 7. Initialize UseCases
	invUC := invUCPkg.NewInventoryUseCase(invRepo, esClient, appLogger)

	catalogClient := catalog.NewClient(&cfg.Catalog, appLogger)
	engine := syncer.NewEngine(catalogClient, invRepo, runRepo, stateStore, lease, cfg, appLogger)
	importer := feedPkg.NewImporter(invRepo, runRepo, cfg, appLogger)

	// 8. Initialize Order Listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		consumer := broker.NewKafkaConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer consumer.Close()

		orderListener := invListenerPkg.NewOrderListener(consumer, invUC, appLogger)
		go orderListener.Start(ctx)
		appLogger.Info("order listener running",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// 9. HTTP Server
	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	invHandlerPkg.NewInventoryHandler(invUC, appLogger).RegisterRoutes(api)
	syncHandlerPkg.NewSyncHandler(engine, runRepo, appLogger).RegisterRoutes(api)
	feedHandlerPkg.NewFeedHandler(importer, cfg, appLogger).RegisterRoutes(api)

	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		appLogger.Info("starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
}
