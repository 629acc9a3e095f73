// Package database provides SQLite connectivity for the climate-bridge
// settings store.
//
// This package manages:
//   - Opening the database file with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (normally the embedded migrations package)
//   - Health checks and lifecycle management
//
// The store is optional. When database.enabled is false nothing here is
// opened and the thermostat starts from its built-in defaults.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
