package mysql

import (
	"context"
	"strings"
	"testing"

	"csvsplit/internal/manifest"
)

func TestNormalizeDSN(t *testing.T) {
	got, err := NormalizeDSN("user:pw@tcp(db:3306)/ledger")
	if err != nil {
		t.Fatalf("NormalizeDSN: %v", err)
	}
	if !strings.Contains(got, "parseTime=true") {
		t.Fatalf("dsn %q lacks parseTime=true", got)
	}
	if !strings.HasPrefix(got, "user:pw@tcp(db:3306)/ledger") {
		t.Fatalf("dsn %q lost its address", got)
	}

	if _, err := NormalizeDSN("not a dsn"); err == nil {
		t.Fatal("expected error for malformed dsn")
	}
}

// TestRegistered verifies that the factory routes through the open hook with
// the defaulted table.
func TestRegistered(t *testing.T) {
	var got manifest.Config
	old := open
	open = func(_ context.Context, cfg manifest.Config) (manifest.Repository, error) {
		got = cfg
		return nil, nil
	}
	t.Cleanup(func() { open = old })

	if _, err := manifest.New(context.Background(), manifest.Config{Kind: "mysql", DSN: "x"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if got.Table != manifest.DefaultTable || got.DSN != "x" {
		t.Fatalf("factory got %+v", got)
	}
}
