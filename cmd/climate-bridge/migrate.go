package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/climate-bridge/internal/infrastructure/config"
	"github.com/nerrad567/climate-bridge/internal/infrastructure/database"
	"github.com/nerrad567/climate-bridge/migrations"
)

// Migrate actions.
const (
	migrateUp     = "up"
	migrateDown   = "down"
	migrateStatus = "status"
)

// errDatabaseDisabled is returned by the migrate command when the
// configuration has no settings store.
var errDatabaseDisabled = errors.New("database is disabled in configuration")

// runMigrate manages the settings store schema outside a normal run.
//
//	migrate [up]    apply pending migrations
//	migrate down    roll back the most recent migration
//	migrate status  list applied and pending migrations
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	action := migrateUp
	switch len(args) {
	case 0:
	case 1:
		action = args[0]
	default:
		return fmt.Errorf("migrate: unexpected arguments %v", args[1:])
	}
	if action != migrateUp && action != migrateDown && action != migrateStatus {
		return fmt.Errorf("migrate: unknown action %q (want up, down or status)", action)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("migrate: %w", errDatabaseDisabled)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // best-effort close on exit

	switch action {
	case migrateDown:
		if err := db.MigrateDown(ctx, migrations.FS); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
		fmt.Fprintln(out, "rolled back latest migration")
	case migrateStatus:
		return printMigrationStatus(ctx, db, out)
	default:
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		fmt.Fprintln(out, "migrations applied")
	}
	return nil
}

func printMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.GetMigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range applied {
		fmt.Fprintf(tw, "applied\t%s\t%s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "pending\t%s\t%s\n", m.Version, m.Name)
	}
	return tw.Flush()
}
