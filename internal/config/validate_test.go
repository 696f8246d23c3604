package config

import (
	"strings"
	"testing"

	"csvsplit/internal/schema"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

// validConfig returns a minimal config that produces no issues.
func validConfig() Config {
	return Config{
		Source: Source{Path: "input.csv"},
		Output: Output{Dir: "out", Format: "csv", MaxRowsPerFile: 10},
	}.WithDefaults()
}

/*
TestValidateConfig_ValidMinimal verifies that a well-formed config produces no
issues (errors or warnings).
*/
func TestValidateConfig_ValidMinimal(t *testing.T) {
	if issues := ValidateConfig(validConfig()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
		msg    string
	}{
		{"missing source", func(c *Config) { c.Source.Path = "" }, "source.path", "must not be empty"},
		{"missing output dir", func(c *Config) { c.Output.Dir = " " }, "output.dir", "must not be empty"},
		{"unknown format", func(c *Config) { c.Output.Format = "yaml" }, "output.format", `unsupported output format "yaml"`},
		{"zero rows", func(c *Config) { c.Output.MaxRowsPerFile = 0 }, "output.max_rows_per_file", "positive"},
		{"negative rows", func(c *Config) { c.Output.MaxRowsPerFile = -5 }, "output.max_rows_per_file", "positive"},
		{"negative workers", func(c *Config) { c.Runtime.WorkerCount = -1 }, "runtime.worker_count", "positive"},
		{"zero chunk", func(c *Config) { c.Runtime.ChunkSizeBytes = 0 }, "runtime.chunk_size_bytes", "positive"},
		{"multi-char delimiter", func(c *Config) { c.Parser.Delimiter = ";;" }, "parser.delimiter", "single character"},
		{"quote delimiter", func(c *Config) { c.Parser.Delimiter = `"` }, "parser.delimiter", "not usable"},
		{"bad batch size", func(c *Config) { c.Output.Options = Options{"batch_size": float64(0)} }, "output.options.batch_size", "positive"},
		{
			"unknown conversion",
			func(c *Config) { c.Transformations.TypeConversions = map[string]string{"age": "decimal"} },
			"transformations.typeConversions.age", `unknown conversion kind "decimal"`,
		},
		{
			"unknown rule type",
			func(c *Config) {
				c.Transformations.Validation = map[string]schema.Rule{"age": {Type: "money"}}
			},
			"transformations.validation.age.type", `unknown rule type "money"`,
		},
		{
			"bad pattern",
			func(c *Config) {
				c.Transformations.Validation = map[string]schema.Rule{"name": {Pattern: "("}}
			},
			"transformations.validation.name.pattern", "invalid pattern",
		},
		{
			"min above max",
			func(c *Config) {
				c.Transformations.Validation = map[string]schema.Rule{"age": {Min: schema.Float(10), Max: schema.Float(1)}}
			},
			"transformations.validation.age.min", "greater than",
		},
		{
			"manifest without dsn",
			func(c *Config) { c.Manifest = Manifest{Kind: "sqlite"} },
			"manifest.dsn", "must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			issues := ValidateConfig(c)
			if !hasIssue(t, issues, SeverityError, tt.path, tt.msg) {
				t.Fatalf("expected error at %s containing %q; got %+v", tt.path, tt.msg, issues)
			}
			if !HasErrors(issues) {
				t.Fatalf("HasErrors=false; want true")
			}
		})
	}
}

func TestValidateConfig_Warnings(t *testing.T) {
	c := validConfig()
	c.Transformations.IncludeColumns = []string{"a", "b"}
	c.Transformations.ExcludeColumns = []string{"b"}
	c.Manifest = Manifest{Kind: "oracle", DSN: "x"}

	issues := ValidateConfig(c)
	if !hasIssue(t, issues, SeverityWarning, "transformations.includeColumns", `"b"`) {
		t.Fatalf("expected include/exclude overlap warning; got %+v", issues)
	}
	if !hasIssue(t, issues, SeverityWarning, "manifest.kind", "oracle") {
		t.Fatalf("expected unknown manifest warning; got %+v", issues)
	}
	if HasErrors(issues) {
		t.Fatalf("warnings only; HasErrors should be false: %+v", issues)
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "output.format", Message: "bad"}
	if got, want := iss.Error(), "error at output.format: bad"; got != want {
		t.Fatalf("Error()=%q; want %q", got, want)
	}
}

func TestFormatNames_Sorted(t *testing.T) {
	got := FormatNames()
	if len(got) != len(KnownFormats) {
		t.Fatalf("FormatNames() = %v, want %d names", got, len(KnownFormats))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("FormatNames() not sorted: %v", got)
		}
	}
}
