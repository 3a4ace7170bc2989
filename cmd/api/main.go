package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bulksender/internal/app"
	"bulksender/internal/config"
	"bulksender/internal/handler"
	"bulksender/internal/logger"
	"bulksender/internal/models"
	"bulksender/internal/queue"
	"bulksender/internal/service"
)

const version = "1.0.0"

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
	zap.ReplaceGlobals(zlog)

	rt, err := app.Open(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to open runtime", zap.Error(err))
	}
	defer rt.Close()

	sessions := service.NewSessionService(rt.ClientFactory(), nil, cfg.Session.ReadyTimeout, zlog.Named("session"))

	sinks := []service.ProgressSink{service.NewLogSink(zlog.Named("progress"))}
	if rt.Queue != nil {
		progress, err := queue.NewProgressPublisher(rt.Queue, zlog.Named("progress"))
		if err != nil {
			zlog.Fatal("failed to create progress publisher", zap.Error(err))
		}
		sinks = append(sinks, progress)
	}

	var rows service.RowLoader
	if contacts := rt.Contacts(); contacts != nil {
		rows = contacts
	}

	campaigns := service.NewCampaignService(
		sessions,
		service.NewTemplateService(cfg.Campaign.DateLayout),
		rows,
		service.NewCampaignTracker(),
		service.CampaignOptions{
			AddressSuffix:       cfg.Session.AddressSuffix,
			DefaultDelaySeconds: cfg.Campaign.DefaultDelaySeconds,
			MaxDelaySeconds:     cfg.Campaign.MaxDelaySeconds,
		},
		zlog.Named("campaign"),
		sinks...,
	)

	router := handler.NewRouter(handler.Services{
		Campaigns: campaigns,
		Sessions:  sessions,
		Health:    service.NewHealthService(rt.DB, rt.QueueStatus(), sessions, version),
	}, zlog)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("api server starting",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.String("transport", cfg.Session.Transport),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zlog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn("server shutdown", zap.Error(err))
	}

	// A running campaign stops after the row in flight.
	_ = campaigns.CancelCampaign()
	if err := campaigns.Wait(ctx); err != nil {
		zlog.Warn("campaign did not finish before shutdown", zap.Error(err))
	}
	if sessions.Status().State != models.SessionDisconnected {
		if err := sessions.Disconnect(); err != nil {
			zlog.Warn("session disconnect", zap.Error(err))
		}
	}

	zlog.Info("api stopped")
}
