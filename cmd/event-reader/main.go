package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"time"

	"github.com/dedezza1D/tasklife/internal/config"
	"github.com/dedezza1D/tasklife/internal/events"
	"github.com/dedezza1D/tasklife/internal/logging"
	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func main() {
	var (
		durable = flag.String("durable", "event-reader", "Durable consumer name")
		subject = flag.String("subject", events.SubjectPrefix+">", "Subject filter (tasks.events.submitted|started|completed|>)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := events.NewNATS(context.Background(), events.Config{
		NATSURL:    cfg.NATSURL,
		StreamName: cfg.NATSEventsStream,
	})
	if err != nil {
		logger.Fatal("nats connection failed", zap.Error(err))
	}
	defer p.Close()

	sub, err := p.JetStream().PullSubscribe(*subject, *durable,
		nats.BindStream(cfg.NATSEventsStream),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		logger.Fatal("pull subscribe failed", zap.Error(err))
	}

	logger.Info("listening for task events", zap.String("subject", *subject), zap.String("durable", *durable))

	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(2*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			logger.Fatal("fetch failed", zap.Error(err))
		}

		for _, m := range msgs {
			var ev events.Event
			if err := json.Unmarshal(m.Data, &ev); err != nil {
				logger.Error("bad event JSON", zap.Error(err), zap.String("subject", m.Subject))
				_ = m.Ack()
				continue
			}

			sc := trace.SpanContextFromContext(observability.ExtractNATS(context.Background(), m.Header))
			logger.Info("task event",
				zap.String("kind", string(ev.Kind)),
				zap.String("task_id", ev.GlobalTaskID),
				zap.String("state", string(ev.State)),
				zap.String("type", ev.TaskType),
				zap.Stringp("result_file", ev.ResultFile),
				zap.Time("occurred_at", ev.OccurredAt),
				zap.String("trace_id", sc.TraceID().String()),
			)

			_ = m.Ack()
		}
	}
}
