package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dedezza1D/tasklife/internal/observability"
	"github.com/nats-io/nats.go"
)

type Config struct {
	NATSURL    string
	StreamName string
	MaxAge     time.Duration
}

// NATS publishes events to a JetStream stream covering tasks.events.>.
type NATS struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	cfg Config
}

func NewNATS(ctx context.Context, cfg Config) (*NATS, error) {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Timeout(5*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	p := &NATS{nc: nc, js: js, cfg: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *NATS) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func (p *NATS) JetStream() nats.JetStreamContext {
	return p.js
}

func (p *NATS) ensureStream(ctx context.Context) error {
	desired := []string{SubjectPrefix + ">"}

	// If stream exists: merge subjects and update only if needed.
	if info, err := p.js.StreamInfo(p.cfg.StreamName, nats.Context(ctx)); err == nil && info != nil {
		merged, changed := mergeSubjects(info.Config.Subjects, desired)
		if !changed {
			return nil
		}

		sc := info.Config
		sc.Subjects = merged
		sc.Name = p.cfg.StreamName

		if _, err := p.js.UpdateStream(&sc, nats.Context(ctx)); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		return nil
	}

	sc := &nats.StreamConfig{
		Name:      p.cfg.StreamName,
		Subjects:  desired,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    p.cfg.MaxAge,
	}
	if _, err := p.js.AddStream(sc, nats.Context(ctx)); err != nil {
		return fmt.Errorf("add stream: %w", err)
	}
	return nil
}

func mergeSubjects(existing, desired []string) ([]string, bool) {
	set := make(map[string]struct{}, len(existing)+len(desired))
	out := make([]string, 0, len(existing)+len(desired))

	// keep existing order
	for _, s := range existing {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}

	changed := false
	for _, s := range desired {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
		changed = true
	}

	return out, changed
}

// Publish sends ev with the caller's trace context in the message headers.
func (p *NATS) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(Subject(ev.Kind))
	msg.Data = b
	observability.InjectNATS(ctx, msg.Header)
	msg.Header.Set("task_id", ev.GlobalTaskID)
	// dedupe window key: one event per task per kind
	msg.Header.Set(nats.MsgIdHdr, ev.GlobalTaskID+"."+string(ev.Kind))

	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}
