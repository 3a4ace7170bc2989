package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bulksender/internal/app"
	"bulksender/internal/config"
	"bulksender/internal/logger"
	"bulksender/internal/queue"
	"bulksender/internal/transport"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	conn, err := queue.NewConnection(cfg.GetRabbitMQURL(), zlog.Named("queue"))
	if err != nil {
		zlog.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	// The gateway owns the real session; here that is the simulator.
	newClient := func() transport.Client { return app.NewSimulator(cfg.Session) }

	gateway, err := queue.NewGateway(conn, newClient, cfg.Session.ReadyTimeout, zlog.Named("gateway"))
	if err != nil {
		zlog.Fatal("failed to create gateway", zap.Error(err))
	}
	if err := gateway.Start(); err != nil {
		zlog.Fatal("failed to start gateway", zap.Error(err))
	}
	zlog.Info("gateway started",
		zap.String("commands", queue.CommandQueue),
		zap.String("jobs", queue.OutboundQueue),
	)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zlog.Info("shutting down")
	if err := gateway.Stop(); err != nil {
		zlog.Warn("error stopping gateway", zap.Error(err))
	}
	zlog.Info("gateway stopped")
}
