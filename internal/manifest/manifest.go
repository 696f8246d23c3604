// Package manifest persists a ledger row for each finished split run, plus
// one row per output file, in a SQL database chosen by kind.
//
// Backends register themselves from init; import csvsplit/internal/manifest/all
// (usually from main) to make every built-in kind available:
//
//	import _ "csvsplit/internal/manifest/all"
//
//	repo, err := manifest.New(ctx, manifest.Config{Kind: "sqlite", DSN: "runs.db"})
//	if err != nil { ... }
//	defer repo.Close()
//	err = repo.SaveRun(ctx, run)
package manifest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"
)

// DefaultTable names the run table when Config.Table is empty. File rows go
// to <table>_files.
const DefaultTable = "split_runs"

// Config selects and configures a backend.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// Run is the ledger entry for one split run.
type Run struct {
	ID          string
	Job         string
	Mode        string
	FellBack    bool
	RowsRead    int64
	RowsWritten int64
	RowsDropped int64
	ErrorCount  int64
	Elapsed     time.Duration
	StartedAt   time.Time
	Files       []File
}

// File is one output file of a run.
type File struct {
	Partition int
	Index     int
	Path      string
	Rows      int64
	Bytes     int64
	Checksum  string
}

// Repository stores runs. Implementations create their tables on open.
type Repository interface {
	SaveRun(ctx context.Context, r Run) error
	Close() error
}

// Factory opens a Repository for cfg. cfg.Table is already defaulted and
// checked by New.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering a kind again
// replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// identRe accepts table or schema.table made of plain identifiers; table
// names are interpolated into SQL.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !identRe.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid manifest.table=%q", cfg.Table)
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported manifest.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// FilesTable is the companion table holding a run's file rows.
func FilesTable(table string) string { return table + "_files" }
