package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"pharmacart/internal/catalog"
	"pharmacart/internal/config"
	"pharmacart/internal/infrastructure/logger"
	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/order"
	"pharmacart/internal/server"
	"pharmacart/internal/storage"
	"pharmacart/internal/wallet"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := storage.New(startCtx, cfg, zapLogger)
	cancelStart()
	if err != nil {
		zapLogger.Fatal("opening store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	catalogSvc := catalog.NewModule(backend.Medicines)
	orderCtrl := order.NewModule(backend, catalogSvc, cfg.Order, m, zapLogger)
	walletCtrl := wallet.NewModule(backend, m, zapLogger)

	router := server.NewRouter(orderCtrl, walletCtrl, backend, reg, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	if err := srv.Shutdown(context.Background()); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
