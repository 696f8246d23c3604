package sqlstore

import (
	"testing"
	"time"

	"csvsplit/internal/manifest"
)

func TestInsertSQL(t *testing.T) {
	cases := []struct {
		d    Dialect
		want string
	}{
		{Dialect{Bind: Question}, "INSERT INTO runs (a, b, c) VALUES (?, ?, ?)"},
		{Dialect{Bind: AtP}, "INSERT INTO runs (a, b, c) VALUES (@p1, @p2, @p3)"},
	}
	for _, tc := range cases {
		if got := InsertSQL(tc.d, "runs", []string{"a", "b", "c"}); got != tc.want {
			t.Fatalf("InsertSQL = %q, want %q", got, tc.want)
		}
	}
}

// TestArgs_MatchColumns verifies that flattened args line up with the column
// lists used to build INSERT statements.
func TestArgs_MatchColumns(t *testing.T) {
	r := manifest.Run{
		ID: "id-1", Job: "j", Mode: "parallel", FellBack: true,
		RowsRead: 10, RowsWritten: 9, RowsDropped: 1,
		Elapsed:   1500 * time.Millisecond,
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)),
	}
	args := RunArgs(r)
	if len(args) != len(RunColumns()) {
		t.Fatalf("RunArgs len = %d, columns = %d", len(args), len(RunColumns()))
	}
	if got := args[8]; got != int64(1500) {
		t.Fatalf("elapsed_ms = %v", got)
	}
	if got := args[9].(time.Time); got.Location() != time.UTC || got.Hour() != 2 {
		t.Fatalf("started_at = %v, want UTC", got)
	}

	fa := FileArgs("id-1", manifest.File{Partition: 2, Index: 3, Path: "p", Rows: 4, Bytes: 5, Checksum: "c"})
	if len(fa) != len(FileColumns()) {
		t.Fatalf("FileArgs len = %d, columns = %d", len(fa), len(FileColumns()))
	}
	if fa[0] != "id-1" || fa[1] != 2 || fa[2] != 3 {
		t.Fatalf("FileArgs = %v", fa)
	}
}
