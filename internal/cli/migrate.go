package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/mesh-intelligence/grid/internal/sqlite"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}
	cmd.AddCommand(
		a.migrateSubcommand("up", "Run all pending migrations", migrateUp),
		a.migrateSubcommand("down", "Roll back the last migration group", migrateDown),
		a.migrateSubcommand("status", "Show migration status", migrateStatus),
	)
	return cmd
}

type migrateFunc func(cmd *cobra.Command, m *migrate.Migrator) error

func (a *app) migrateSubcommand(use, short string, run migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlite.OpenDB(a.config)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			m := sqlite.NewMigrator(db)
			if err := m.Init(cmd.Context()); err != nil {
				return fmt.Errorf("initializing migrator: %w", err)
			}
			return run(cmd, m)
		},
	}
}

func migrateUp(cmd *cobra.Command, m *migrate.Migrator) error {
	ctx := cmd.Context()
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("locking migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck

	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if group.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "No new migrations to run (database is up to date)")
		return nil
	}
	printOK(cmd.OutOrStdout(), "Migrated to %s", group)
	return nil
}

func migrateDown(cmd *cobra.Command, m *migrate.Migrator) error {
	ctx := cmd.Context()
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("locking migrations: %w", err)
	}
	defer m.Unlock(ctx) //nolint:errcheck

	group, err := m.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	if group.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to roll back")
		return nil
	}
	printOK(cmd.OutOrStdout(), "Rolled back %s", group)
	return nil
}

func migrateStatus(cmd *cobra.Command, m *migrate.Migrator) error {
	ms, err := m.MigrationsWithStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Migrations:")
	for _, mig := range ms {
		status := "pending"
		if mig.IsApplied() {
			status = "applied"
		}
		fmt.Fprintf(out, "  %s: %s\n", mig.Name, status)
	}
	return nil
}
