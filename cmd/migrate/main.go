// Команда migrate применяет и откатывает встроенные SQL-миграции схемы заказов.
//
//	migrate up [--steps N] [--dsn DSN]
//	migrate down [--steps N]
//	migrate status
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/orderapi/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "OMS_POSTGRES_DSN"
)

type options struct {
	dsn     string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the orders database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "overall timeout for the command")

	root.AddCommand(newUpCmd(opts), newDownCmd(opts), newStatusCmd(opts))
	return root
}

func newUpCmd(opts *options) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateUp(ctx, steps); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printStatus(ctx, cmd, store, "migrate up ok")
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}

func newDownCmd(opts *options) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateDown(ctx, steps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printStatus(ctx, cmd, store, "migrate down ok")
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store *postgres.Store) error {
				return printStatus(ctx, cmd, store, "migration status")
			})
		},
	}
}

func resolveDSN(flagValue string) (string, error) {
	dsn := strings.TrimSpace(flagValue)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv(envPostgresDSN))
	}
	if dsn == "" {
		return "", errors.New(envPostgresDSN + " (or --dsn) is required")
	}
	return dsn, nil
}

func withStore(cmd *cobra.Command, opts *options, fn func(ctx context.Context, store *postgres.Store) error) error {
	dsn, err := resolveDSN(opts.dsn)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	return fn(ctx, store)
}

func printStatus(ctx context.Context, cmd *cobra.Command, store *postgres.Store, prefix string) error {
	state, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: version=%d applied=%d pending=%d\n",
		prefix, state.Current, state.Applied, state.Pending)
	return err
}
