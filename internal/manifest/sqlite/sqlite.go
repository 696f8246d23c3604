// Package sqlite registers the "sqlite" manifest backend on the pure-Go
// modernc.org/sqlite driver. The DSN is a file path or a file: URI.
package sqlite

import (
	"context"

	_ "modernc.org/sqlite"

	"csvsplit/internal/manifest"
	"csvsplit/internal/manifest/sqlstore"
)

// Dialect is the SQLite flavor of the ledger tables.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Bind: sqlstore.Question,
	RunsDDL: `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id       TEXT PRIMARY KEY,
  job          TEXT NOT NULL,
  mode         TEXT NOT NULL,
  fell_back    INTEGER NOT NULL,
  rows_read    INTEGER NOT NULL,
  rows_written INTEGER NOT NULL,
  rows_dropped INTEGER NOT NULL,
  error_count  INTEGER NOT NULL,
  elapsed_ms   INTEGER NOT NULL,
  started_at   TIMESTAMP NOT NULL
)`,
	FilesDDL: `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id          TEXT NOT NULL,
  partition_index INTEGER NOT NULL,
  file_index      INTEGER NOT NULL,
  path            TEXT NOT NULL,
  row_count       INTEGER NOT NULL,
  byte_count      INTEGER NOT NULL,
  checksum        TEXT NOT NULL,
  PRIMARY KEY (run_id, partition_index, file_index)
)`,
}

// open is a test hook.
var open = func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
	return sqlstore.Open(ctx, "sqlite", cfg.DSN, cfg.Table, Dialect)
}

func init() {
	manifest.Register("sqlite", func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
		return open(ctx, cfg)
	})
}
