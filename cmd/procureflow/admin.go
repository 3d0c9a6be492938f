package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/platform/config"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/urfave/cli/v3"
)

func grantRoleCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "grant-role",
		Usage: "Grant a role to a user of a tenant",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tenant", Required: true},
			&cli.StringFlag{Name: "user", Required: true},
			&cli.StringFlag{Name: "name", Usage: "display name of the user"},
			&cli.StringFlag{Name: "role", Required: true},
			&cli.BoolFlag{Name: "revoke", Usage: "revoke the role instead"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver == config.StoreDriverMemory {
				return fmt.Errorf("grant-role needs a persistent store; use serve --seed-role with the memory store")
			}
			rt, err := openRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			if c.Bool("revoke") {
				if err := rt.repos.UserDirectory.RevokeRole(ctx, c.String("tenant"), c.String("user"), c.String("role")); err != nil {
					return err
				}
				logger.Info("Role revoked", slog.String("user_id", c.String("user")), slog.String("role", c.String("role")))
				return nil
			}
			ur := domain.UserRole{
				TenantID: c.String("tenant"),
				UserID:   c.String("user"),
				UserName: c.String("name"),
				Role:     c.String("role"),
			}
			if err := rt.repos.UserDirectory.GrantRole(ctx, ur); err != nil {
				return err
			}
			logger.Info("Role granted", slog.String("user_id", ur.UserID), slog.String("role", ur.Role))
			return nil
		},
	}
}

// tokenCommand mints a bearer token for local testing.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Print a signed JWT for an actor",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tenant", Required: true},
			&cli.StringFlag{Name: "user", Required: true},
			&cli.StringFlag{Name: "name"},
			&cli.StringSliceFlag{Name: "role"},
			&cli.DurationFlag{Name: "ttl", Value: time.Hour},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			actor := domain.Actor{
				UserID:   c.String("user"),
				UserName: c.String("name"),
				TenantID: c.String("tenant"),
				Roles:    c.StringSlice("role"),
			}
			token, err := utils.GenerateJWT(actor, cfg.JWTSecret, c.Duration("ttl"), cfg.JWTIssuer)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
