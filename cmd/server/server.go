package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	hzotel "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	appconfig "StaySafe/config"
	"StaySafe/internal/handler"
	"StaySafe/internal/middleware"
	"StaySafe/internal/queue"
	"StaySafe/internal/router"
	"StaySafe/internal/service"
	"StaySafe/pkg/logger"
	"StaySafe/pkg/otel"
	"StaySafe/pkg/snowflake"
	"StaySafe/pkg/token"
	"StaySafe/storage"
)

func main() {
	// 日志部分
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

	cfg := appconfig.Cfg

	// 链路追踪
	var serverOpts []config.Option
	if cfg.TracingEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.TracingEndpoint,
			SampleRatio:    cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, tracing disabled", zap.Error(err))
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()

			if err := middleware.InitMetrics(hzotel.Meter("staysafe-server")); err != nil {
				logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
			}

			tracerOpt, _ := middleware.NewServerTracerConfig()
			serverOpts = append(serverOpts, tracerOpt)
		}
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize identity token verifier", zap.Error(err))
	}

	// 告警派发队列
	producer := queue.NewProducer()
	if err := producer.Setup(); err != nil {
		logger.Logger.Fatal("Failed to set up alert dispatch queue", zap.Error(err))
	}
	service.SetAlertPublisher(producer)

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
	)

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	serverOpts = append(serverOpts, server.WithHostPorts(addr))
	h := server.Default(serverOpts...)

	contacts := handler.NewContactHandler(service.Contact())
	alerts := handler.NewAlertHandler(service.Alert())
	router.Register(h, contacts, alerts)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
