package main

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/SscSPs/procureflow/internal/core/ports/repositories"
	"github.com/SscSPs/procureflow/internal/outbox"
	"github.com/SscSPs/procureflow/internal/platform/config"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
)

func relayCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Run only the outbox relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "run a single cycle and exit"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreDriverMemory {
				return fmt.Errorf("a standalone relay cannot share an in-memory store; use serve")
			}
			stopTelemetry, err := startTelemetry(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer stopTelemetry()
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			if !c.Bool("once") {
				return runRelay(ctx, cfg, logger, rt.stores)
			}
			relay, closeRelay, err := newRelay(cfg, logger, rt.stores)
			if err != nil {
				return err
			}
			defer closeRelay()
			stats, err := relay.RunOnce(ctx)
			if err != nil {
				return err
			}
			logger.Info("Outbox cycle finished",
				slog.Int("selected", stats.Selected),
				slog.Int("delivered", stats.Delivered),
				slog.Int("failed", stats.Failed))
			return nil
		},
	}
}

func newDeliverer(cfg *config.Config, logger *slog.Logger) (outbox.Deliverer, error) {
	switch cfg.Outbox.Deliverer {
	case config.DelivererKafka:
		return outbox.NewKafkaDeliverer(cfg.Outbox.KafkaBrokers, cfg.Outbox.KafkaTopicPrefix), nil
	case config.DelivererNATS:
		return outbox.NewNATSDeliverer(cfg.Outbox.NATSURL, cfg.Outbox.NATSSubjectPrefix)
	default:
		return outbox.NewLogDeliverer(logger), nil
	}
}

func newRelay(cfg *config.Config, logger *slog.Logger, stores portsrepo.OutboxStoreFactory) (*outbox.Relay, func(), error) {
	deliverer, err := newDeliverer(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s deliverer: %w", cfg.Outbox.Deliverer, err)
	}
	closeFn := func() {
		if err := deliverer.Close(); err != nil {
			logger.Error("Failed to close deliverer", slog.String("error", err.Error()))
		}
	}
	relay, err := outbox.NewRelay(stores, deliverer, utils.SystemClock{}, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxRetries:   cfg.Outbox.MaxRetries,
	}, logger, otel.GetMeterProvider())
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return relay, closeFn, nil
}

func runRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger, stores portsrepo.OutboxStoreFactory) error {
	relay, closeRelay, err := newRelay(cfg, logger, stores)
	if err != nil {
		return err
	}
	defer closeRelay()
	logger.Info("Outbox relay starting", slog.String("deliverer", cfg.Outbox.Deliverer))
	return relay.Run(ctx)
}
