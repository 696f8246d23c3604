// Package config defines the canonical, JSON-serializable configuration model
// for a split run. It is intentionally small and explicit so that a run can be
// loaded from disk (or assembled by a CLI) and handed to the core as one fully
// resolved value.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in config files.
//  3. Minimalism: decoding is performed by encoding/json, with a light Options
//     helper for format-specific knobs.
//
// Example (trimmed):
//
//	{
//	  "source":  { "path": "data/big.csv" },
//	  "output":  { "dir": "out", "format": "jsonl", "max_rows_per_file": 100000 },
//	  "transformations": {
//	    "includeColumns": ["id","name","age"],
//	    "typeConversions": { "age": "integer" },
//	    "validation": { "age": { "type": "number", "min": 18 } }
//	  },
//	  "runtime": { "use_parallel": true, "worker_count": 8, "chunk_size_bytes": 16777216 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"csvsplit/internal/schema"
)

// Defaults applied by WithDefaults.
const (
	DefaultFormat         = "csv"
	DefaultMaxRowsPerFile = 100_000
	DefaultChunkSizeBytes = 16 << 20 // 16 MiB
)

// Config describes one split run. It is the only input the core accepts.
type Config struct {
	// Job names the run for logs, metrics, and the manifest ledger.
	Job string `json:"job"`

	Source Source `json:"source"`
	Parser Parser `json:"parser"`
	Output Output `json:"output"`

	// Transformations is optional; a zero value means rows pass through as read.
	Transformations Transformations `json:"transformations"`

	Runtime RuntimeConfig `json:"runtime"`

	// GenerateStats enables the Aggregator tap and per-column statistics on
	// the result.
	GenerateStats bool `json:"generate_stats"`

	// Quiet suppresses progress logging only. It never affects data output.
	Quiet bool `json:"quiet"`

	// Manifest optionally persists a summary of each run.
	Manifest Manifest `json:"manifest"`
}

// Source identifies the delimited-text input file.
type Source struct {
	Path string `json:"path"`
}

// Parser describes the input dialect.
type Parser struct {
	// Delimiter is the single-character field separator (default ",").
	Delimiter string `json:"delimiter"`

	// TrimSpace trims leading/trailing whitespace from every field.
	TrimSpace bool `json:"trim_space"`

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool `json:"lazy_quotes"`
}

// Comma returns the delimiter as a rune, defaulting to ','.
func (p Parser) Comma() rune {
	if p.Delimiter == "" {
		return ','
	}
	if p.Delimiter == `\t` {
		return '\t'
	}
	return []rune(p.Delimiter)[0]
}

// Output describes where and how split files are written.
type Output struct {
	// Dir is created recursively if absent.
	Dir string `json:"dir"`

	// Format selects the writer: csv, tsv, jsonl, json, xml, parquet/columnar.
	Format string `json:"format"`

	// MaxRowsPerFile is the rotation threshold (data rows, not counting headers).
	MaxRowsPerFile int `json:"max_rows_per_file"`

	// Options carries writer-specific knobs, e.g. root_element, row_element,
	// batch_size.
	Options Options `json:"options"`
}

// Transformations mirrors the optional transformation block of a run.
type Transformations struct {
	IncludeColumns  []string               `json:"includeColumns"`
	ExcludeColumns  []string               `json:"excludeColumns"`
	TypeConversions map[string]string      `json:"typeConversions"`
	Validation      map[string]schema.Rule `json:"validation"`
}

// Empty reports whether no transformation is configured.
func (t Transformations) Empty() bool {
	return len(t.IncludeColumns) == 0 && len(t.ExcludeColumns) == 0 &&
		len(t.TypeConversions) == 0 && len(t.Validation) == 0
}

// RuntimeConfig controls parallel execution.
type RuntimeConfig struct {
	UseParallel    bool  `json:"use_parallel"`
	WorkerCount    int   `json:"worker_count"`
	ChunkSizeBytes int64 `json:"chunk_size_bytes"`
}

// Manifest selects the run ledger backend. An empty Kind disables it.
type Manifest struct {
	Kind  string `json:"kind"` // sqlite|postgres|mssql|mysql
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// Load reads and decodes a JSON config file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return c, nil
}

// WithDefaults returns a copy of c with unset fields filled in. Negative values
// are left alone so that ValidateConfig can report them.
func (c Config) WithDefaults() Config {
	if c.Job == "" {
		c.Job = "csvsplit"
	}
	if c.Output.Format == "" {
		c.Output.Format = DefaultFormat
	}
	c.Output.Format = strings.ToLower(c.Output.Format)
	if c.Output.MaxRowsPerFile == 0 {
		c.Output.MaxRowsPerFile = DefaultMaxRowsPerFile
	}
	if c.Output.Options == nil {
		c.Output.Options = Options{}
	}
	if c.Runtime.WorkerCount == 0 {
		c.Runtime.WorkerCount = runtime.NumCPU()
	}
	if c.Runtime.ChunkSizeBytes == 0 {
		c.Runtime.ChunkSizeBytes = DefaultChunkSizeBytes
	}
	return c
}

// ApplyEnv returns a copy of c with 12-factor overrides applied. Environment
// values win over the file; unset or unparsable variables are ignored.
//
//	CSVSPLIT_WORKERS, CSVSPLIT_CHUNK_BYTES, CSVSPLIT_MAX_ROWS,
//	CSVSPLIT_FORMAT, CSVSPLIT_OUTPUT_DIR
func (c Config) ApplyEnv() Config {
	c.Runtime.WorkerCount = pickInt(getenvInt("CSVSPLIT_WORKERS", 0), c.Runtime.WorkerCount)
	c.Runtime.ChunkSizeBytes = int64(pickInt(getenvInt("CSVSPLIT_CHUNK_BYTES", 0), int(c.Runtime.ChunkSizeBytes)))
	c.Output.MaxRowsPerFile = pickInt(getenvInt("CSVSPLIT_MAX_ROWS", 0), c.Output.MaxRowsPerFile)
	if s := os.Getenv("CSVSPLIT_FORMAT"); s != "" {
		c.Output.Format = s
	}
	if s := os.Getenv("CSVSPLIT_OUTPUT_DIR"); s != "" {
		c.Output.Dir = s
	}
	return c
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// UnmarshalJSON makes a missing or null "options" object decode to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
