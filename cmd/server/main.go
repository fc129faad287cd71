package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pharma-supply/internal/adapter/discovery"
	"github.com/rl1809/pharma-supply/internal/adapter/handler"
	"github.com/rl1809/pharma-supply/internal/adapter/messaging"
	"github.com/rl1809/pharma-supply/internal/adapter/metrics"
	"github.com/rl1809/pharma-supply/internal/adapter/oracle"
	"github.com/rl1809/pharma-supply/internal/adapter/rpc"
	"github.com/rl1809/pharma-supply/internal/adapter/storage"
	"github.com/rl1809/pharma-supply/internal/config"
	"github.com/rl1809/pharma-supply/internal/core/service"
	"github.com/rl1809/pharma-supply/internal/port"
)

const serviceName = "pharma-supply"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	dialect, err := storage.ParseDialect(cfg.DBDriver)
	if err != nil {
		log.Fatalf("invalid database driver: %v", err)
	}
	store, err := storage.Open(ctx, dialect, cfg.DatabaseDSN, storage.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Printf("connected to %s", dialect)

	// Alert claims live in Redis when configured, otherwise in the database
	var dedup port.AlertDeduplicator = store
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		dedup = storage.NewRedisAdapter(rdb, cfg.ClaimTTL)
		log.Println("connected to redis")
	}

	var events port.EventPublisher = messaging.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = messaging.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("publishing events to %s", cfg.KafkaTopic)
	}

	prom := metrics.NewPrometheus()

	// Initialize services
	policy := cfg.StatusPolicy()
	repos := service.Repositories{Entities: store, Medicines: store, Batches: store, Orders: store, Alerts: store}
	alertService := service.NewAlertService(store, dedup, events, prom)
	inventoryService := service.NewInventoryService(repos, alertService, events, policy)
	orderService := service.NewOrderService(repos, alertService, events, prom)

	var provider port.AnalyticsOracle
	var closers []io.Closer
	if cfg.OracleAddr != "" {
		client, err := rpc.NewOracleClient(cfg.OracleAddr)
		if err != nil {
			log.Fatalf("failed to create oracle client: %v", err)
		}
		closers = append(closers, client)
		provider = client
		log.Printf("using remote analytics oracle at %s", cfg.OracleAddr)
	} else {
		provider = oracle.NewHeuristic(store, store, store, policy)
		log.Println("using in-process analytics oracle")
	}
	gateway := service.NewAnalyticsGateway(provider, cfg.AnalyticsTimeout, cfg.BreakerFailures, cfg.BreakerCooldown, prom)

	// Start sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweeper := service.NewSweeper(store, inventoryService, cfg.SweepWorkers, prom)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(sweepCtx, cfg.SweepInterval)
	}()
	log.Printf("started sweeper with %d workers every %s", cfg.SweepWorkers, cfg.SweepInterval)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(handler.Services{
		Inventory: inventoryService,
		Orders:    orderService,
		Alerts:    alertService,
		Analytics: gateway,
		Health:    store,
		Metrics:   prom.Handler(),
	}, handler.Options{
		AuthSecret:   cfg.AuthSecret,
		AuthRequired: cfg.AuthRequired,
		Development:  cfg.Development(),
		CORSOrigins:  cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httpHandler.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	var registry *discovery.ConsulClient
	if cfg.ConsulAddr != "" {
		registry, err = discovery.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			log.Fatalf("failed to create consul client: %v", err)
		}
		host, _ := os.Hostname()
		if err := registry.RegisterService(cfg.ServiceID, serviceName, host, cfg.HTTPPort, "http"); err != nil {
			log.Printf("failed to register with consul: %v", err)
			registry = nil
		}
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	if registry != nil {
		if err := registry.DeregisterService(cfg.ServiceID); err != nil {
			log.Printf("failed to deregister from consul: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	stopSweep()
	wg.Wait()
	log.Println("sweeper stopped")

	if err := events.Close(); err != nil {
		log.Printf("failed to close event publisher: %v", err)
	}
	for _, c := range closers {
		c.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	store.Close()
	log.Println("connections closed")
}
