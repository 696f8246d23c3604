// Package mysql registers the "mysql" manifest backend on
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"csvsplit/internal/manifest"
	"csvsplit/internal/manifest/sqlstore"
)

// Dialect is the MySQL flavor of the ledger tables.
var Dialect = sqlstore.Dialect{
	Name: "mysql",
	Bind: sqlstore.Question,
	RunsDDL: `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id       VARCHAR(36) NOT NULL PRIMARY KEY,
  job          VARCHAR(255) NOT NULL,
  mode         VARCHAR(16) NOT NULL,
  fell_back    BOOLEAN NOT NULL,
  rows_read    BIGINT NOT NULL,
  rows_written BIGINT NOT NULL,
  rows_dropped BIGINT NOT NULL,
  error_count  BIGINT NOT NULL,
  elapsed_ms   BIGINT NOT NULL,
  started_at   DATETIME(6) NOT NULL
)`,
	FilesDDL: `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id          VARCHAR(36) NOT NULL,
  partition_index INT NOT NULL,
  file_index      INT NOT NULL,
  path            VARCHAR(1024) NOT NULL,
  row_count       BIGINT NOT NULL,
  byte_count      BIGINT NOT NULL,
  checksum        CHAR(16) NOT NULL,
  PRIMARY KEY (run_id, partition_index, file_index)
)`,
}

// NormalizeDSN parses dsn and forces the settings the ledger relies on:
// parseTime for DATETIME columns and UTC timestamps.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// open is a test hook.
var open = func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
	dsn, err := NormalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(ctx, "mysql", dsn, cfg.Table, Dialect)
}

func init() {
	manifest.Register("mysql", func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
		return open(ctx, cfg)
	})
}
