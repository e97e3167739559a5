package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/dagedit"
	"github.com/meikuraledutech/dagedit/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

// cmdEnv is what every subcommand gets after flags and config are resolved.
type cmdEnv struct {
	cfg    Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
		rt      cmdEnv
	)

	root := &cobra.Command{
		Use:          "dagedit-server",
		Short:        "Graph editor backend that keeps every graph acyclic and consistent",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			level := cfg.level()
			if verbose {
				level = log.DebugLevel
			}
			rt = cmdEnv{cfg: cfg, logger: newLogger(cmd.ErrOrStderr(), level)}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a config file (yaml, toml, or json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd(&rt))
	root.AddCommand(newSchemaCmd(&rt))
	root.AddCommand(newCheckCmd())
	return root
}

func newServeCmd(rt *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := rt.cfg, rt.logger

			var store dagedit.Store
			if cfg.DatabaseURL != "" {
				pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				store = postgres.New(pool)
			} else {
				logger.Warn("DATABASE_URL is not set, graphs are kept in memory only")
			}

			reg := prometheus.NewRegistry()
			a := &api{
				cfg:      cfg,
				store:    store,
				sessions: newSessions(store, dagedit.WithHistoryLimit(cfg.HistoryLimit)),
				logger:   logger,
				metrics:  newMetrics(reg),
			}
			app := newApp(a, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			go func() {
				<-ctx.Done()
				logger.Info("shutting down")
				_ = app.Shutdown()
			}()

			logger.Info("listening", "addr", cfg.ListenAddr)
			return app.Listen(cfg.ListenAddr)
		},
	}
}

func newSchemaCmd(rt *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or drop the database tables",
	}

	withStore := func(ctx context.Context, fn func(dagedit.Store) error) error {
		if rt.cfg.DatabaseURL == "" {
			return errNoStore
		}
		pool, err := pgxpool.New(ctx, rt.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(postgres.New(pool))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the graph tables if they don't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s dagedit.Store) error {
				if err := s.CreateSchema(cmd.Context()); err != nil {
					return err
				}
				rt.logger.Info("schema created")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop the graph tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s dagedit.Store) error {
				if err := s.DropSchema(cmd.Context()); err != nil {
					return err
				}
				rt.logger.Info("schema dropped")
				return nil
			})
		},
	})
	return cmd
}
