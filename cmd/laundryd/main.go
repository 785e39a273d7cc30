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

	"github.com/SherClockHolmes/webpush-go"

	"github.com/uarix/WashWise/config"
	"github.com/uarix/WashWise/internal/api"
	"github.com/uarix/WashWise/internal/db"
	"github.com/uarix/WashWise/internal/ledger"
	"github.com/uarix/WashWise/internal/logger"
	"github.com/uarix/WashWise/internal/metrics"
	"github.com/uarix/WashWise/internal/notification"
	"github.com/uarix/WashWise/internal/poller"
	"github.com/uarix/WashWise/internal/snapshot"
	"github.com/uarix/WashWise/internal/vendorapi"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)
	defer log.Sync()
	log.Infow("starting laundry monitor", "config", configPath, "debug", cfg.Debug)

	metrics.Init()

	// Usage ledger storage. This is the only durable state; derived machine
	// states rebuild from the vendor within one poll interval.
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalw("failed to initialize database", "err", err)
	}
	usage := ledger.New(gormDB)
	log.Infow("usage ledger initialized", "driver", cfg.Database.Driver)

	snapshots := snapshot.NewStore()
	client := vendorapi.NewClient(&cfg.Poller)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push notifications are optional; without VAPID keys the poller simply
	// never dispatches availability jobs.
	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, log)
	} else {
		log.Infow("VAPID keys not configured, push notifications disabled")
	}

	pollSvc := poller.NewService(cfg, client, snapshots, usage, pool, log)
	go pollSvc.Run(ctx)

	handler := api.NewHandler(snapshots, usage, gormDB, webpushOptions, log)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Infow("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("HTTP server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Infow("shutdown signal received, stopping services")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("HTTP server shutdown failed", "err", err)
	}

	log.Infow("server gracefully stopped")
}
