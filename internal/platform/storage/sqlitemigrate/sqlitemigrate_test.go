package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyMigrationsRunsOnce(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_init.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY);
-- +migrate Down
DROP TABLE things;
`)},
	}

	sqlDB := openTestDB(t)
	if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", count)
	}
}

func TestApplyMigrationsOrdersFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_add_column.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
ALTER TABLE things ADD COLUMN name TEXT NOT NULL DEFAULT '';
`)},
		"0001_init.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY);
`)},
	}

	sqlDB := openTestDB(t)
	if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO things (id, name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;"
	up := ExtractUpMigration(content)
	if up != "\nCREATE TABLE a (id TEXT);\n" {
		t.Fatalf("unexpected up section: %q", up)
	}
}
