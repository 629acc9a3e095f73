package database

import (
	"context"
	"testing"
	"testing/fstest"
)

// testMigrations is a two-step schema used across migration tests.
var testMigrations = fstest.MapFS{
	"20260101_000000_create_settings.up.sql": {
		Data: []byte("CREATE TABLE test_settings (id INTEGER PRIMARY KEY, value TEXT);"),
	},
	"20260101_000000_create_settings.down.sql": {
		Data: []byte("DROP TABLE test_settings;"),
	},
	"20260102_000000_add_history.up.sql": {
		Data: []byte("CREATE TABLE test_history (id INTEGER PRIMARY KEY);"),
	},
	"20260102_000000_add_history.down.sql": {
		Data: []byte("DROP TABLE test_history;"),
	},
	"README.md": {Data: []byte("ignored")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"test_settings", "test_history"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	if applied[0].Version != "20260101_000000" {
		t.Errorf("applied[0].Version = %q, want oldest first", applied[0].Version)
	}

	// Running again is idempotent.
	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureRollsBackOnlyThatMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	broken := fstest.MapFS{
		"20260101_000000_good.up.sql": {Data: []byte("CREATE TABLE good (id INTEGER);")},
		"20260102_000000_bad.up.sql":  {Data: []byte("CREATE TABLE oops (;")},
	}

	if err := db.Migrate(context.Background(), broken); err == nil {
		t.Fatal("Migrate() with broken SQL should fail")
	}

	if !tableExists(t, db, "good") {
		t.Error("earlier migration should remain committed")
	}

	applied, pending, err := db.GetMigrationStatus(context.Background(), broken)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1/1", len(applied), len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "test_history") {
		t.Error("latest migration should have been rolled back")
	}
	if !tableExists(t, db, "test_settings") {
		t.Error("earlier migration should remain")
	}

	applied, _, err := db.GetMigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("applied = %d after rollback, want 1", len(applied))
	}
}

func TestMigrateDown_NothingApplied(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx, nil); err != nil {
		t.Fatalf("Migrate(nil) error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestGetMigrationStatus_Pending(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	applied, pending, err := db.GetMigrationStatus(context.Background(), testMigrations)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied = %d, want 0", len(applied))
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
	if pending[0].Name != "create_settings" || pending[0].DownSQL == "" {
		t.Errorf("pending[0] = %+v", pending[0])
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_000000_thermostat_settings.up.sql",
			wantVersion: "20260301_000000",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_000000_thermostat_settings.down.sql",
			wantVersion: "20260301_000000",
			wantIsUp:    false,
			wantOk:      true,
		},
		{name: "not sql file", filename: "readme.txt"},
		{name: "missing direction", filename: "20260301_000000_settings.sql"},
		{name: "invalid format", filename: "invalid.up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260301_000000_thermostat_settings.up.sql", "thermostat_settings"},
		{"20260301_000000_initial_schema.down.sql", "initial_schema"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
