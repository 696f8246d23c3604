// Package config provides configuration models and helpers for split runs.
//
// This file adds a lightweight linter/validator for Config values. It performs
// static checks over a decoded Config and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"csvsplit/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "output.format",
// "transformations.validation.age.pattern"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// KnownFormats lists the output format names accepted by the writer factory.
var KnownFormats = map[string]struct{}{
	"csv":      {},
	"tsv":      {},
	"jsonl":    {},
	"json":     {},
	"xml":      {},
	"parquet":  {},
	"columnar": {},
}

// FormatNames returns the known output formats, sorted.
func FormatNames() []string { return sortedKeys(KnownFormats) }

// ConversionKinds lists the target kinds accepted by typeConversions.
var ConversionKinds = map[string]struct{}{
	"number":    {},
	"float":     {},
	"integer":   {},
	"int":       {},
	"boolean":   {},
	"bool":      {},
	"date":      {},
	"datetime":  {},
	"uppercase": {},
	"lowercase": {},
	"trim":      {},
	"string":    {},
	"ascii":     {},
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateConfig performs static validation / linting of a Config. It does not
// mutate the config. Call it on the result of WithDefaults; zero values that
// defaults would fill are reported as errors otherwise.
//
// Example:
//
//	cfg = cfg.WithDefaults()
//	for _, iss := range config.ValidateConfig(cfg) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidateConfig(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Source.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.path",
			Message:  "source.path must not be empty",
		})
	}
	issues = append(issues, validateParser(c.Parser)...)
	issues = append(issues, validateOutput(c.Output)...)
	issues = append(issues, validateTransformations(c.Transformations)...)
	issues = append(issues, validateRuntime(c.Runtime)...)
	issues = append(issues, validateManifest(c.Manifest)...)

	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	if p.Delimiter == "" || p.Delimiter == `\t` {
		return nil
	}
	if utf8.RuneCountInString(p.Delimiter) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.delimiter",
			Message:  fmt.Sprintf("delimiter %q must be a single character", p.Delimiter),
		})
		return issues
	}
	switch p.Comma() {
	case '"', '\n', '\r', utf8.RuneError:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.delimiter",
			Message:  fmt.Sprintf("delimiter %q is not usable as a field separator", p.Delimiter),
		})
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dir",
			Message:  "output.dir must not be empty",
		})
	}
	if _, ok := KnownFormats[strings.ToLower(o.Format)]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unsupported output format %q", o.Format),
		})
	}
	if o.MaxRowsPerFile <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.max_rows_per_file",
			Message:  fmt.Sprintf("max_rows_per_file=%d; must be a positive integer", o.MaxRowsPerFile),
		})
	}
	if n := o.Options.Int("batch_size", 1); n <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.options.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; must be a positive integer", n),
		})
	}
	return issues
}

func validateTransformations(t Transformations) []Issue {
	var issues []Issue

	excluded := make(map[string]struct{}, len(t.ExcludeColumns))
	for _, c := range t.ExcludeColumns {
		excluded[c] = struct{}{}
	}
	for _, c := range t.IncludeColumns {
		if _, ok := excluded[c]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "transformations.includeColumns",
				Message:  fmt.Sprintf("column %q is both included and excluded; it will be dropped", c),
			})
		}
	}

	for _, col := range sortedKeys(t.TypeConversions) {
		kind := t.TypeConversions[col]
		if _, ok := ConversionKinds[strings.ToLower(kind)]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "transformations.typeConversions." + col,
				Message:  fmt.Sprintf("unknown conversion kind %q", kind),
			})
		}
	}

	for _, col := range sortedKeys(t.Validation) {
		issues = append(issues, validateRule("transformations.validation."+col, t.Validation[col])...)
	}
	return issues
}

func validateRule(path string, r schema.Rule) []Issue {
	var issues []Issue
	if r.Type != "" {
		if _, ok := schema.RuleTypes[r.Type]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".type",
				Message:  fmt.Sprintf("unknown rule type %q", r.Type),
			})
		}
	}
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".pattern",
				Message:  fmt.Sprintf("invalid pattern: %v", err),
			})
		}
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".min",
			Message:  fmt.Sprintf("min=%v is greater than max=%v", *r.Min, *r.Max),
		})
	}
	if r.MinLength != nil && r.MaxLength != nil && *r.MinLength > *r.MaxLength {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".minLength",
			Message:  fmt.Sprintf("minLength=%d is greater than maxLength=%d", *r.MinLength, *r.MaxLength),
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.WorkerCount <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.worker_count",
			Message:  fmt.Sprintf("worker_count=%d; must be a positive integer", r.WorkerCount),
		})
	}
	if r.ChunkSizeBytes <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size_bytes",
			Message:  fmt.Sprintf("chunk_size_bytes=%d; must be a positive integer", r.ChunkSizeBytes),
		})
	}
	return issues
}

func validateManifest(m Manifest) []Issue {
	var issues []Issue
	if strings.TrimSpace(m.Kind) == "" {
		return nil
	}
	known := map[string]struct{}{
		"sqlite":   {},
		"postgres": {},
		"mssql":    {},
		"mysql":    {},
	}
	if _, ok := known[m.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "manifest.kind",
			Message:  fmt.Sprintf("unknown manifest kind %q; ensure a matching backend is registered", m.Kind),
		})
	}
	if strings.TrimSpace(m.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "manifest.dsn",
			Message:  "manifest.dsn must not be empty when manifest.kind is set",
		})
	}
	return issues
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
