// Package mssql registers the "mssql" manifest backend on
// github.com/microsoft/go-mssqldb. File rows are loaded with the driver's
// bulk copy API.
package mssql

import (
	"context"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"csvsplit/internal/manifest"
	"csvsplit/internal/manifest/sqlstore"
)

// Dialect is the SQL Server flavor of the ledger tables.
var Dialect = sqlstore.Dialect{
	Name: "mssql",
	Bind: sqlstore.AtP,
	RunsDDL: `IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
  run_id       NVARCHAR(36) NOT NULL PRIMARY KEY,
  job          NVARCHAR(255) NOT NULL,
  mode         NVARCHAR(16) NOT NULL,
  fell_back    BIT NOT NULL,
  rows_read    BIGINT NOT NULL,
  rows_written BIGINT NOT NULL,
  rows_dropped BIGINT NOT NULL,
  error_count  BIGINT NOT NULL,
  elapsed_ms   BIGINT NOT NULL,
  started_at   DATETIME2 NOT NULL
)`,
	FilesDDL: `IF OBJECT_ID(N'%[1]s', N'U') IS NULL
CREATE TABLE %[1]s (
  run_id          NVARCHAR(36) NOT NULL,
  partition_index INT NOT NULL,
  file_index      INT NOT NULL,
  path            NVARCHAR(1024) NOT NULL,
  row_count       BIGINT NOT NULL,
  byte_count      BIGINT NOT NULL,
  checksum        CHAR(16) NOT NULL,
  PRIMARY KEY (run_id, partition_index, file_index)
)`,
}

// Repository stores the run row with a plain INSERT and the file rows with
// a bulk copy, in one transaction.
type Repository struct {
	*sqlstore.Store
	table string
}

// NewRepository validates the DSN, connects and creates the tables.
func NewRepository(ctx context.Context, cfg manifest.Config) (*Repository, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	s, err := sqlstore.Open(ctx, "sqlserver", cfg.DSN, cfg.Table, Dialect)
	if err != nil {
		return nil, err
	}
	return &Repository{Store: s, table: cfg.Table}, nil
}

// SaveRun implements manifest.Repository.
func (r *Repository) SaveRun(ctx context.Context, run manifest.Run) error {
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mssql: begin tx: %w", err)
	}
	insert := sqlstore.InsertSQL(Dialect, r.table, sqlstore.RunColumns())
	if _, err := tx.ExecContext(ctx, insert, sqlstore.RunArgs(run)...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("mssql: insert run: %w", err)
	}

	if len(run.Files) > 0 {
		stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(manifest.FilesTable(r.table), mssql.BulkOptions{}, sqlstore.FileColumns()...))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mssql: prepare bulk copy: %w", err)
		}
		for _, f := range run.Files {
			if _, err := stmt.ExecContext(ctx, sqlstore.FileArgs(run.ID, f)...); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return fmt.Errorf("mssql: bulk row %s: %w", f.Path, err)
			}
		}
		_, err = stmt.ExecContext(ctx) // flush
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mssql: bulk copy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mssql: commit: %w", err)
	}
	return nil
}

// newRepository is a test hook.
var newRepository = func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
	return NewRepository(ctx, cfg)
}

func init() {
	manifest.Register("mssql", func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
