package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/SscSPs/procureflow/internal/outbox"

// Config tunes the relay loop.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxRetries stops selecting a row once its retryCount reaches it. 0 means unlimited.
	MaxRetries int
}

// Stats summarizes one cycle.
type Stats struct {
	Selected  int
	Delivered int
	Failed    int
}

// Relay polls unprocessed outbox rows and hands them to a Deliverer, at least once.
type Relay struct {
	stores    portsrepo.OutboxStoreFactory
	deliverer Deliverer
	clock     portssvc.Clock
	cfg       Config
	logger    *slog.Logger
	delivered metric.Int64Counter
	failed    metric.Int64Counter
}

func NewRelay(stores portsrepo.OutboxStoreFactory, deliverer Deliverer, clock portssvc.Clock, cfg Config, logger *slog.Logger, mp metric.MeterProvider) (*Relay, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	meter := mp.Meter(instrumentationName)
	delivered, err := meter.Int64Counter("outbox.messages.delivered",
		metric.WithDescription("Outbox messages accepted by the transport."))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("outbox.messages.failed",
		metric.WithDescription("Outbox delivery attempts that failed."))
	if err != nil {
		return nil, err
	}
	return &Relay{
		stores:    stores,
		deliverer: deliverer,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "outbox_relay")),
		delivered: delivered,
		failed:    failed,
	}, nil
}

// Run polls until ctx is cancelled. A failed cycle is logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Outbox relay started",
		slog.Duration("poll_interval", r.cfg.PollInterval),
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Int("max_retries", r.cfg.MaxRetries))

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Outbox relay cycle failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch. Delivery failures are recorded on the rows and do not fail
// the cycle; only store errors do.
func (r *Relay) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	store, release, err := r.stores(ctx)
	if err != nil {
		return stats, err
	}
	defer release()

	msgs, err := store.FindUnprocessedOutboxMessages(ctx, r.cfg.BatchSize, r.cfg.MaxRetries)
	if err != nil {
		return stats, err
	}
	stats.Selected = len(msgs)

	for _, msg := range msgs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		typeAttr := metric.WithAttributes(attribute.String("event.type", msg.Type))

		if derr := r.deliverer.Deliver(ctx, msg); derr != nil {
			stats.Failed++
			r.failed.Add(ctx, 1, typeAttr)
			r.logger.Warn("Outbox delivery failed",
				slog.String("outbox_message_id", msg.ID),
				slog.String("event_type", msg.Type),
				slog.Int("retry_count", msg.RetryCount+1),
				slog.String("error", derr.Error()))
			if err := store.MarkOutboxMessageFailed(ctx, msg.ID, derr.Error()); err != nil {
				return stats, err
			}
			continue
		}

		set, err := store.MarkOutboxMessageProcessed(ctx, msg.ID, r.clock.Now())
		if err != nil {
			return stats, apperrors.NewAppError(500, "delivered outbox message "+msg.ID+" could not be marked processed", err)
		}
		if set {
			stats.Delivered++
			r.delivered.Add(ctx, 1, typeAttr)
		}
	}
	if stats.Selected > 0 {
		r.logger.Info("Outbox relay cycle finished",
			slog.Int("selected", stats.Selected),
			slog.Int("delivered", stats.Delivered),
			slog.Int("failed", stats.Failed))
	}
	return stats, nil
}
