package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appconfig "StaySafe/config"
	"StaySafe/internal/queue"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/sms"
	"StaySafe/storage"
)

// worker 消费告警派发队列并批量下发短信，和 HTTP server 分开部署
func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := sms.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize SMS client", zap.Error(err))
	}
	queue.SetSMSSender(sms.GetClient())

	logger.Logger.Info("Alert dispatch worker starting",
		zap.String("service", appconfig.Cfg.ServiceName),
		zap.String("environment", appconfig.Cfg.Environment),
	)

	queue.StartAllConsumers(ctx)

	logger.Logger.Info("Worker shutting down gracefully")
}
