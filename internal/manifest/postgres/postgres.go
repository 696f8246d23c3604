// Package postgres registers the "postgres" manifest backend on pgx v5. The
// run row is a plain INSERT; file rows go through COPY.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"csvsplit/internal/manifest"
	"csvsplit/internal/manifest/sqlstore"
)

const runsDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id       TEXT PRIMARY KEY,
  job          TEXT NOT NULL,
  mode         TEXT NOT NULL,
  fell_back    BOOLEAN NOT NULL,
  rows_read    BIGINT NOT NULL,
  rows_written BIGINT NOT NULL,
  rows_dropped BIGINT NOT NULL,
  error_count  BIGINT NOT NULL,
  elapsed_ms   BIGINT NOT NULL,
  started_at   TIMESTAMPTZ NOT NULL
)`

const filesDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
  run_id          TEXT NOT NULL REFERENCES %[2]s (run_id),
  partition_index INTEGER NOT NULL,
  file_index      INTEGER NOT NULL,
  path            TEXT NOT NULL,
  row_count       BIGINT NOT NULL,
  byte_count      BIGINT NOT NULL,
  checksum        TEXT NOT NULL,
  PRIMARY KEY (run_id, partition_index, file_index)
)`

// Repository is a pgxpool-backed manifest.Repository.
type Repository struct {
	pool  *pgxpool.Pool
	table string
}

// NewRepository connects, pings and creates the tables.
func NewRepository(ctx context.Context, cfg manifest.Config) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	r := &Repository{pool: pool, table: cfg.Table}
	if err := r.ensureTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureTables(ctx context.Context) error {
	files := manifest.FilesTable(r.table)
	for _, ddl := range []string{fmt.Sprintf(runsDDL, r.table), fmt.Sprintf(filesDDL, files, r.table)} {
		if _, err := r.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres: create table: %w", err)
		}
	}
	return nil
}

// SaveRun implements manifest.Repository.
func (r *Repository) SaveRun(ctx context.Context, run manifest.Run) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRunSQL(r.table), sqlstore.RunArgs(run)...); err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	if len(run.Files) > 0 {
		rows := make([][]any, 0, len(run.Files))
		for _, f := range run.Files {
			rows = append(rows, sqlstore.FileArgs(run.ID, f))
		}
		n, err := tx.CopyFrom(ctx, splitFQN(manifest.FilesTable(r.table)), sqlstore.FileColumns(), pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("postgres: copy files: %w", err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("postgres: copy files: wrote %d of %d rows", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func insertRunSQL(table string) string {
	cols := sqlstore.RunColumns()
	binds := make([]string, len(cols))
	for i := range binds {
		binds[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(binds, ", "))
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// newRepository is a test hook.
var newRepository = func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
	return NewRepository(ctx, cfg)
}

func init() {
	manifest.Register("postgres", func(ctx context.Context, cfg manifest.Config) (manifest.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
