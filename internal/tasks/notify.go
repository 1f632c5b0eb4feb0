package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/packhooks/internal/graph"
	"git.home.luguber.info/inful/packhooks/internal/hooks"
	"git.home.luguber.info/inful/packhooks/internal/logfields"
	"git.home.luguber.info/inful/packhooks/internal/retry"
)

const selectorNotify = "notify"

type notifyConfig struct {
	URL       string `json:"url"`
	Subject   string `json:"subject"`
	JetStream bool   `json:"jetstream"`
	Timeout   string `json:"timeout"`
	Retries   int    `json:"retries"`
	Backoff   string `json:"backoff"`
}

// PackagedEvent is the message published for a packaged entry point.
type PackagedEvent struct {
	BuildID   string    `json:"build_id"`
	Package   string    `json:"package"`
	ModuleID  string    `json:"module_id"`
	Version   string    `json:"version"`
	Bundle    string    `json:"bundle,omitempty"`
	Files     int       `json:"files"`
	Watch     bool      `json:"watch"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends a message on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close()
}

// newPublisher is replaced in tests.
var newPublisher = ConnectNATS

type natsPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// ConnectNATS connects to url. With useJetStream set, messages are published
// through JetStream and acknowledged by a stream.
func ConnectNATS(url string, useJetStream bool) (Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("packhooks"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p := &natsPublisher{conn: conn}
	if useJetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		p.js = js
	}
	return p, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.js != nil {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *natsPublisher) Close() { p.conn.Close() }

func notifyJob() hooks.JobMetadata {
	return hooks.JobMetadata{
		Selector:    selectorNotify,
		Schema:      schema("notify.json"),
		Description: "Publish a NATS event after each entry point is emitted",
		Hooks: hooks.HooksConfig{
			hooks.PackageEmit: {After: hooks.Handler(notifyPackaged)},
		},
	}
}

func notifyPackaged(ctx context.Context, tc *hooks.TaskContext) (*graph.Graph, error) {
	var cfg notifyConfig
	if err := tc.DecodeJobArgs(selectorNotify, &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "packhooks.builds"
	}
	timeout := 5 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("notify: timeout: %w", err)
		}
		timeout = d
	}

	pkg, ep, err := entryOf(tc)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(PackagedEvent{
		BuildID:   tc.Global().BuildID,
		Package:   pkg.Name,
		ModuleID:  ep.ModuleID,
		Version:   pkg.Version,
		Bundle:    ep.BundlePath,
		Files:     len(ep.Outputs),
		Watch:     tc.Global().Watch,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: marshal event: %w", err)
	}

	policy := retry.NewPolicy(retry.BackoffMode(cfg.Backoff), 0, 0, cfg.Retries)
	err = policy.Do(ctx, func(ctx context.Context) error {
		return publishOnce(ctx, cfg, timeout, data)
	}, func(attempt int, err error) {
		tc.Logger().Warn("Retrying build event", logfields.Entry(ep.ModuleID), slog.Int("attempt", attempt), logfields.Error(err))
	})
	if err != nil {
		return nil, err
	}
	tc.Logger().Debug("Published build event", logfields.Entry(ep.ModuleID), slog.String("subject", cfg.Subject))
	return nil, nil
}

func publishOnce(ctx context.Context, cfg notifyConfig, timeout time.Duration, data []byte) error {
	pub, err := newPublisher(cfg.URL, cfg.JetStream)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer pub.Close()

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pub.Publish(pctx, cfg.Subject, data); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", cfg.Subject, err)
	}
	return nil
}
