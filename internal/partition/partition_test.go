package partition

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvsplit/internal/config"
	"csvsplit/internal/engine"
)

func TestChunkSize(t *testing.T) {
	cases := []struct {
		name       string
		size       int64
		workers    int
		configured int64
		want       int64
	}{
		{"even split smaller than configured", 1000, 4, 16 << 20, 250},
		{"rounds up", 1001, 4, 16 << 20, 251},
		{"configured wins", 1000, 2, 100, 100},
		{"zero workers treated as one", 10, 0, 100, 10},
		{"never below one", 1, 8, 100, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ChunkSize(tc.size, tc.workers, tc.configured))
		})
	}
}

/*
TestPlan_CoversFile verifies that planned ranges are consecutive, 1-based and
cover [0, size) exactly.
*/
func TestPlan_CoversFile(t *testing.T) {
	for _, size := range []int64{1, 7, 100, 1001} {
		ranges := Plan(size, 3, 64)
		require.NotEmpty(t, ranges)
		var off int64
		for i, r := range ranges {
			assert.Equal(t, i+1, r.Index)
			assert.Equal(t, off, r.Start)
			assert.Greater(t, r.End, r.Start)
			off = r.End
		}
		assert.Equal(t, size, off)
	}
	assert.Empty(t, Plan(0, 4, 64))
}

// writeSource writes a CSV with header id,name and n data rows.
func writeSource(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,name-%d\n", i, i)
	}
	p := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o644))
	return p
}

func parallelConfig(src, out string, workers int, chunk int64) config.Config {
	cfg := config.Config{
		Source:  config.Source{Path: src},
		Output:  config.Output{Dir: out, Format: "csv", MaxRowsPerFile: 50},
		Runtime: config.RuntimeConfig{UseParallel: true, WorkerCount: workers, ChunkSizeBytes: chunk},
		Quiet:   true,
	}
	return cfg.WithDefaults()
}

// collectIDs reads every output file and returns how often each id was seen.
func collectIDs(t *testing.T, files []engine.FileInfo) map[int]int {
	t.Helper()
	seen := map[int]int{}
	for _, fi := range files {
		f, err := os.Open(fi.Path)
		require.NoError(t, err)
		rows, err := csv.NewReader(f).ReadAll()
		f.Close()
		require.NoError(t, err)
		require.Equal(t, []string{"id", "name"}, rows[0], fi.Path)
		assert.EqualValues(t, len(rows)-1, fi.Rows, fi.Path)
		for _, row := range rows[1:] {
			id, err := strconv.Atoi(row[0])
			require.NoError(t, err)
			seen[id]++
		}
	}
	return seen
}

/*
TestCoordinator_EveryRowOnce verifies that with many small partitions every
source row lands in exactly one output file and names never collide.
*/
func TestCoordinator_EveryRowOnce(t *testing.T) {
	const n = 1000
	dir := t.TempDir()
	cfg := parallelConfig(writeSource(t, dir, n), filepath.Join(dir, "out"), 3, 1024)

	c := New(cfg)
	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, engine.ModeParallel, res.Mode)
	assert.False(t, res.FellBack)
	assert.EqualValues(t, n, res.RowsRead)
	assert.EqualValues(t, n, res.RowsWritten)
	assert.Equal(t, []string{"id", "name"}, res.OutputHeaders)

	var sum int64
	names := map[string]bool{}
	pattern := regexp.MustCompile(`^split_part_\d+_\d+_\d{4}-\d{2}-\d{2}\.csv$`)
	for _, fi := range res.Files {
		sum += fi.Rows
		base := filepath.Base(fi.Path)
		assert.Regexp(t, pattern, base)
		assert.False(t, names[base], "duplicate file %s", base)
		names[base] = true
		assert.LessOrEqual(t, fi.Rows, int64(50))
	}
	assert.EqualValues(t, n, sum)

	seen := collectIDs(t, res.Files)
	require.Len(t, seen, n)
	for id := 1; id <= n; id++ {
		assert.Equal(t, 1, seen[id], "id %d", id)
	}

	// files come back in partition order
	for i := 1; i < len(res.Files); i++ {
		assert.LessOrEqual(t, res.Files[i-1].Partition, res.Files[i].Partition)
	}
}

func TestCoordinator_RespectsWorkerLimit(t *testing.T) {
	dir := t.TempDir()
	cfg := parallelConfig(writeSource(t, dir, 500), filepath.Join(dir, "out"), 2, 512)

	var inflight, peak, calls int32
	old := runSplit
	runSplit = func(ctx context.Context, s *engine.Split) (*engine.Result, error) {
		cur := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		atomic.AddInt32(&calls, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return s.Run(ctx)
	}
	t.Cleanup(func() { runSplit = old })

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 500, res.RowsWritten)
	assert.Greater(t, int(calls), 2)
	assert.LessOrEqual(t, int(peak), 2)
}

/*
TestCoordinator_RefillsFreeWorker verifies that a slow partition does not hold
back the rest: with two workers and partition 1 stalled, the other worker keeps
picking up partitions until every one but the first has finished.
*/
func TestCoordinator_RefillsFreeWorker(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, 500)
	cfg := parallelConfig(src, filepath.Join(dir, "out"), 2, 512)
	st, err := os.Stat(src)
	require.NoError(t, err)
	total := len(Plan(st.Size(), 2, 512))
	require.Greater(t, total, 3)

	var finished int32
	othersDone := make(chan struct{})
	var refilled atomic.Bool
	old := runSplit
	runSplit = func(ctx context.Context, s *engine.Split) (*engine.Result, error) {
		if s.Partition == 1 {
			select {
			case <-othersDone:
				refilled.Store(true)
			case <-time.After(5 * time.Second):
			}
			return s.Run(ctx)
		}
		res, err := s.Run(ctx)
		if atomic.AddInt32(&finished, 1) == int32(total-1) {
			close(othersDone)
		}
		return res, err
	}
	t.Cleanup(func() { runSplit = old })

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, refilled.Load(), "partitions 2..%d should finish while partition 1 is in flight", total)
	assert.EqualValues(t, 500, res.RowsWritten)
	assert.Equal(t, 1, res.Files[0].Partition)
}

func TestCoordinator_StatsMerged(t *testing.T) {
	dir := t.TempDir()
	cfg := parallelConfig(writeSource(t, dir, 300), filepath.Join(dir, "out"), 4, 256)
	cfg.GenerateStats = true

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Aggregator)

	res.FinalizeStats()
	id := res.Stats["id"]
	assert.EqualValues(t, 300, id.Count)
	assert.Equal(t, 300, id.DistinctCount)
	require.NotNil(t, id.Numeric)
	assert.Equal(t, float64(1), id.Numeric.Min)
	assert.Equal(t, float64(300), id.Numeric.Max)
}

/*
TestCoordinator_FallbackOnWorkerFailure verifies that a failing partition
sends the whole run through the sequential path, flagged as a fallback.
*/
func TestCoordinator_FallbackOnWorkerFailure(t *testing.T) {
	cases := []struct {
		name string
		fail func()
	}{
		{"error", nil},
		{"panic", func() { panic("boom") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := parallelConfig(writeSource(t, dir, 200), filepath.Join(dir, "out"), 2, 256)

			old := runSplit
			runSplit = func(ctx context.Context, s *engine.Split) (*engine.Result, error) {
				if s.Partition == 2 {
					if tc.fail != nil {
						tc.fail()
					}
					return nil, errors.New("disk on fire")
				}
				return s.Run(ctx)
			}
			t.Cleanup(func() { runSplit = old })

			var called int
			c := New(cfg)
			c.Sequential = func(ctx context.Context, got config.Config) (*engine.Result, error) {
				called++
				assert.Equal(t, cfg.Source.Path, got.Source.Path)
				return &engine.Result{Mode: engine.ModeSequential, RowsRead: 200, RowsWritten: 200}, nil
			}

			res, err := c.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, called)
			assert.True(t, res.FellBack)
			assert.Equal(t, engine.ModeSequential, res.Mode)
			assert.Equal(t, StateDone, c.State())
		})
	}
}

func TestCoordinator_FallbackRealSequential(t *testing.T) {
	dir := t.TempDir()
	cfg := parallelConfig(writeSource(t, dir, 120), filepath.Join(dir, "out"), 2, 256)

	old := runSplit
	runSplit = func(ctx context.Context, s *engine.Split) (*engine.Result, error) {
		if s.Partition == 1 {
			return nil, errors.New("nope")
		}
		return s.Run(ctx)
	}
	t.Cleanup(func() { runSplit = old })

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.EqualValues(t, 120, res.RowsWritten)
	require.Len(t, res.Files, 3)
	for _, fi := range res.Files {
		assert.Equal(t, 0, fi.Partition)
	}
}

func TestCoordinator_SourceErrorsDoNotFallBack(t *testing.T) {
	dir := t.TempDir()
	cfg := parallelConfig(filepath.Join(dir, "missing.csv"), filepath.Join(dir, "out"), 2, 256)

	c := New(cfg)
	c.Sequential = func(context.Context, config.Config) (*engine.Result, error) {
		t.Fatal("fallback must not run for a missing source")
		return nil, nil
	}
	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrSourceUnavailable)
}

func TestCoordinator_FallbackErrorIsReturned(t *testing.T) {
	dir := t.TempDir()
	cfg := parallelConfig(writeSource(t, dir, 50), filepath.Join(dir, "out"), 2, 128)

	old := runSplit
	runSplit = func(context.Context, *engine.Split) (*engine.Result, error) {
		return nil, errors.New("nope")
	}
	t.Cleanup(func() { runSplit = old })

	sentinel := errors.New("sequential broke too")
	c := New(cfg)
	c.Sequential = func(context.Context, config.Config) (*engine.Result, error) { return nil, sentinel }

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, sentinel)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "fallback", StateFallback.String())
	assert.Equal(t, "State(42)", State(42).String())
}
