package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dedezza1D/tasklife/internal/config"
	"github.com/dedezza1D/tasklife/internal/events"
	"github.com/dedezza1D/tasklife/internal/logging"
	"github.com/dedezza1D/tasklife/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := events.NewNATS(ctx, events.Config{
		NATSURL:    cfg.NATSURL,
		StreamName: cfg.NATSEventsStream,
	})
	if err != nil {
		logger.Fatal("nats connection failed", zap.Error(err))
	}
	defer p.Close()

	info, err := p.JetStream().StreamInfo(cfg.NATSEventsStream)
	if err != nil {
		logger.Fatal("StreamInfo failed", zap.Error(err))
	}

	fmt.Println("EVENT STREAM:", info.Config.Name)
	fmt.Println("SUBJECTS:")
	for _, s := range info.Config.Subjects {
		fmt.Println(" -", s)
	}
	fmt.Println("STATE:", "msgs=", info.State.Msgs, "bytes=", info.State.Bytes)

	kv, err := store.DialNATSKV(ctx, cfg.NATSURL, cfg.NATSKVBucket)
	if err != nil {
		logger.Fatal("kv bucket unavailable", zap.Error(err))
	}
	defer kv.Close()

	status, err := kv.Status(ctx)
	if err != nil {
		logger.Fatal("kv status failed", zap.Error(err))
	}
	fmt.Println("KV BUCKET:", status.Bucket())
	fmt.Println("KV STATE:", "values=", status.Values(), "bytes=", status.Bytes(), "history=", status.History())
}
