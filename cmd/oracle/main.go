package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/rl1809/pharma-supply/internal/adapter/discovery"
	"github.com/rl1809/pharma-supply/internal/adapter/handler"
	"github.com/rl1809/pharma-supply/internal/adapter/oracle"
	"github.com/rl1809/pharma-supply/internal/adapter/rpc"
	"github.com/rl1809/pharma-supply/internal/adapter/storage"
	"github.com/rl1809/pharma-supply/internal/config"
)

const serviceName = "pharma-oracle"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

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

	heuristic := oracle.NewHeuristic(store, store, store, cfg.StatusPolicy())

	grpcServer := grpc.NewServer()
	rpc.RegisterOracleServer(grpcServer, handler.NewGRPCHandler(heuristic))

	lis, err := net.Listen("tcp", ":"+cfg.OraclePort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC oracle listening on :%s", cfg.OraclePort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	var registry *discovery.ConsulClient
	if cfg.ConsulAddr != "" {
		registry, err = discovery.NewConsulClient(cfg.ConsulAddr)
		if err != nil {
			log.Fatalf("failed to create consul client: %v", err)
		}
		host, _ := os.Hostname()
		if err := registry.RegisterGRPCService(cfg.ServiceID, serviceName, host, cfg.OraclePort); err != nil {
			log.Printf("failed to register with consul: %v", err)
			registry = nil
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	if registry != nil {
		if err := registry.DeregisterService(cfg.ServiceID); err != nil {
			log.Printf("failed to deregister from consul: %v", err)
		}
	}
	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	store.Close()
	log.Println("connections closed")
}
