// Package cli wires the hirelane binary:
//
//	hirelane serve     API, ops and realtime listeners plus the sweep loop
//	hirelane migrate   apply pending migrations and exit
//	hirelane sweep     run one reconciliation pass and exit
//	hirelane token     mint a bearer token for local testing
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hirelane/internal/app"
	"hirelane/internal/config"
	"hirelane/internal/domain"
	"hirelane/internal/pkg/jwt"
	"hirelane/internal/pkg/logger"
)

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hirelane",
		Short:         "Recruiting marketplace lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildMigrateCommand())
	rootCmd.AddCommand(buildSweepCommand())
	rootCmd.AddCommand(buildTokenCommand())

	return rootCmd
}

func load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log.With(zap.String("app", cfg.App.AppName)), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func buildServeCommand() *cobra.Command {
	var noSweep bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with background reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if noSweep {
				cfg.Sweep.DisableInServe = true
			}

			ctx, stop := signalContext()
			defer stop()

			a, cleanup, err := app.Bootstrap(ctx, cfg, log)
			if err != nil {
				log.Error("bootstrap failed", zap.Error(err))
				return err
			}
			defer func() {
				if err := cleanup(); err != nil {
					log.Warn("cleanup error", zap.Error(err))
				}
			}()

			if err := a.Serve(ctx); err != nil {
				log.Error("server stopped with error", zap.Error(err))
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the reconciliation loop in this process")
	return cmd
}

func buildMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signalContext()
			defer stop()

			c, err := app.NewContainer(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Migrate(ctx)
		},
	}
}

func buildSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one offer and payment reconciliation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signalContext()
			defer stop()

			c, err := app.NewContainer(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer c.Close()

			rep, err := c.Services.Sweep.RunOnce(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "offers checked=%d repaired=%d payments checked=%d settled=%d skipped=%v\n",
				rep.OffersChecked, rep.OffersRepaired, rep.PaymentsChecked, rep.PaymentsSettled, rep.Skipped)
			return err
		},
	}
}

func buildTokenCommand() *cobra.Command {
	var (
		userID string
		role   string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			jwtCfg, err := env.ParseAs[config.JWTConfig]()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			r := domain.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid --role %q", role)
			}

			tok, err := jwt.NewHMACService(jwtCfg.Secret, jwtCfg.Issuer, jwtCfg.TokenTTL).Issue(id, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id=%s role=%s\n%s\n", id, r, tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleTalent), "talent, business or admin")
	return cmd
}
