package all

import (
	"reflect"
	"testing"

	"csvsplit/internal/manifest"
)

func TestAllKindsRegistered(t *testing.T) {
	want := []string{"mssql", "mysql", "postgres", "sqlite"}
	if got := manifest.ListKinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ListKinds = %v, want %v", got, want)
	}
}
