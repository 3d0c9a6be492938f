package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/procureflow/internal/platform/config"
	"github.com/urfave/cli/v3"
)

// @title Procureflow API
// @version 1.0
// @description Purchase requests and configurable approval applications.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:  "procureflow",
		Usage: "Purchase request and approval workflow server",
		Commands: []*cli.Command{
			serveCommand(logger),
			relayCommand(logger),
			migrateCommand(logger),
			grantRoleCommand(logger),
			tokenCommand(),
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, logger, true)
		},
	}

	if err := root.Run(ctx, os.Args); err != nil {
		logger.Error("Command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
