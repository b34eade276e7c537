package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dedezza1D/tasklife/api/httpapi"
	"github.com/dedezza1D/tasklife/internal/config"
	"github.com/dedezza1D/tasklife/internal/events"
	"github.com/dedezza1D/tasklife/internal/lifecycle"
	"github.com/dedezza1D/tasklife/internal/logging"
	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/dedezza1D/tasklife/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := observability.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("metrics registration failed", zap.Error(err))
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), observability.OTelConfig{
		ServiceName: firstNonEmpty(cfg.OTELServiceName, "tasklife-api"),
		Endpoint:    cfg.OTELExporterOTLPEndpoint,
		Env:         cfg.Env,
		SampleRatio: cfg.OTELSampleRatio,
	})
	if err != nil {
		logger.Fatal("otel init failed", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Task store
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := store.Open(openCtx, store.Config{
		Backend:        cfg.StoreBackend,
		DatabaseURL:    cfg.DatabaseURL,
		SQLitePath:     cfg.SQLitePath,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
		NATSURL:        cfg.NATSURL,
		NATSBucket:     cfg.NATSKVBucket,
	}, logger)
	cancelOpen()
	if err != nil {
		logger.Fatal("task store connection failed", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	// Lifecycle events (optional)
	var pub events.Publisher = events.Nop{}
	if cfg.EventsEnabled {
		np, err := events.NewNATS(context.Background(), events.Config{
			NATSURL:    cfg.NATSURL,
			StreamName: cfg.NATSEventsStream,
		})
		if err != nil {
			logger.Fatal("nats connection failed", zap.Error(err))
		}
		defer np.Close()
		pub = np
		logger.Info("lifecycle events enabled", zap.String("stream", cfg.NATSEventsStream))
	}

	svc := lifecycle.NewService(st, logger, lifecycle.Options{
		StoreTimeout: cfg.StoreTimeout,
		Events:       pub,
	})

	// HTTP server
	server := httpapi.NewServer(httpapi.Config{Port: cfg.HTTPPort}, logger, svc)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
