// Package sqlstore is the database/sql implementation of manifest.Repository
// shared by the sqlite, mssql and mysql backends. Dialects differ only in
// placeholders and DDL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"csvsplit/internal/manifest"
)

// Dialect describes one SQL flavor.
type Dialect struct {
	Name string
	// Bind returns the placeholder for the 1-based argument n.
	Bind func(n int) string
	// RunsDDL and FilesDDL create the tables if missing; %[1]s is the
	// table name.
	RunsDDL  string
	FilesDDL string
}

// Question binds every argument as "?".
func Question(int) string { return "?" }

// AtP binds argument n as "@p<n>".
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }

var runColumns = []string{
	"run_id", "job", "mode", "fell_back", "rows_read", "rows_written",
	"rows_dropped", "error_count", "elapsed_ms", "started_at",
}

var fileColumns = []string{
	"run_id", "partition_index", "file_index", "path", "row_count", "byte_count", "checksum",
}

// Store writes runs through a *sql.DB.
type Store struct {
	db    *sql.DB
	d     Dialect
	runs  string
	files string
}

// Open connects with driver/dsn, pings, and creates the tables.
func Open(ctx context.Context, driver, dsn, table string, d Dialect) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Name)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Name, err)
	}

	s := New(db, table, d)
	if err := s.EnsureTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. The caller still owns EnsureTables.
func New(db *sql.DB, table string, d Dialect) *Store {
	return &Store{db: db, d: d, runs: table, files: manifest.FilesTable(table)}
}

// EnsureTables runs the dialect DDL for both tables.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, ddl := range []string{fmt.Sprintf(s.d.RunsDDL, s.runs), fmt.Sprintf(s.d.FilesDDL, s.files)} {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%s: create table: %w", s.d.Name, err)
		}
	}
	return nil
}

// InsertSQL builds INSERT INTO table (cols) VALUES (binds).
func InsertSQL(d Dialect, table string, cols []string) string {
	binds := make([]string, len(cols))
	for i := range binds {
		binds[i] = d.Bind(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(binds, ", "))
}

// SaveRun inserts the run row and its file rows in one transaction.
func (s *Store) SaveRun(ctx context.Context, r manifest.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", s.d.Name, err)
	}

	if _, err := tx.ExecContext(ctx, InsertSQL(s.d, s.runs, runColumns), RunArgs(r)...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: insert run: %w", s.d.Name, err)
	}

	if len(r.Files) > 0 {
		stmt, err := tx.PrepareContext(ctx, InsertSQL(s.d, s.files, fileColumns))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%s: prepare insert: %w", s.d.Name, err)
		}
		defer stmt.Close()
		for _, f := range r.Files {
			if _, err := stmt.ExecContext(ctx, FileArgs(r.ID, f)...); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("%s: insert file %s: %w", s.d.Name, f.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.d.Name, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for backend-specific work.
func (s *Store) DB() *sql.DB { return s.db }

// RunColumns and FileColumns list the ledger columns in insert order.
func RunColumns() []string  { return append([]string(nil), runColumns...) }
func FileColumns() []string { return append([]string(nil), fileColumns...) }

// RunArgs flattens r in RunColumns order.
func RunArgs(r manifest.Run) []any {
	return []any{
		r.ID, r.Job, r.Mode, r.FellBack, r.RowsRead, r.RowsWritten,
		r.RowsDropped, r.ErrorCount, r.Elapsed.Milliseconds(), r.StartedAt.UTC(),
	}
}

// FileArgs flattens f in FileColumns order.
func FileArgs(runID string, f manifest.File) []any {
	return []any{runID, f.Partition, f.Index, f.Path, f.Rows, f.Bytes, f.Checksum}
}
