// Package run is the single entry point of the core: it takes a fully
// resolved config.Config, picks the execution mode, and returns the run
// result. It never reads flags or the environment.
package run

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"csvsplit/internal/config"
	"csvsplit/internal/engine"
	"csvsplit/internal/manifest"
	"csvsplit/internal/metrics"
	"csvsplit/internal/partition"
)

// Seams for tests.
var (
	newRunID    = uuid.NewString
	sequential  = engine.Sequential
	parallel    = func(ctx context.Context, cfg config.Config) (*engine.Result, error) { return partition.New(cfg).Run(ctx) }
	newManifest = manifest.New
)

// Execute validates cfg and runs the split. Call cfg.WithDefaults first.
//
// On success the result carries a run id, the mode actually used (a parallel
// run that fell back reports sequential with FellBack set), and per-column
// statistics when cfg.GenerateStats is set.
//
// When a manifest backend is configured and saving fails, the result is
// still returned together with the error: the output files are complete.
func Execute(ctx context.Context, cfg config.Config) (*engine.Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	started := time.Now()
	id := newRunID()
	if !cfg.Quiet {
		log.Printf("run start: id=%s job=%s source=%s format=%s max_rows=%d parallel=%v workers=%d",
			id, cfg.Job, cfg.Source.Path, cfg.Output.Format, cfg.Output.MaxRowsPerFile,
			cfg.Runtime.UseParallel, cfg.Runtime.WorkerCount)
	}

	var (
		res *engine.Result
		err error
	)
	if cfg.Runtime.UseParallel {
		res, err = parallel(ctx, cfg)
	} else {
		res, err = sequential(ctx, cfg)
	}
	if err != nil {
		metrics.RecordStep(cfg.Job, "run", err, time.Since(started))
		return nil, err
	}

	res.RunID = id
	res.Job = cfg.Job
	res.Elapsed = time.Since(started)
	res.FinalizeStats()

	metrics.RecordStep(cfg.Job, "run", nil, res.Elapsed)
	metrics.RecordRow(cfg.Job, "read", res.RowsRead)
	metrics.RecordRow(cfg.Job, "written", res.RowsWritten)
	metrics.RecordRow(cfg.Job, "dropped", res.RowsDropped)
	metrics.RecordRow(cfg.Job, "errors", res.ErrorCount)
	metrics.RecordFiles(cfg.Job, int64(len(res.Files)))

	logSummary(res)

	if cfg.Manifest.Kind != "" {
		if err := saveManifest(ctx, cfg.Manifest, res, started); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Validate runs config.ValidateConfig, logs warnings, and folds errors into
// one ErrConfigurationInvalid.
func Validate(cfg config.Config) error {
	var msgs []string
	for _, iss := range config.ValidateConfig(cfg) {
		if iss.Severity == config.SeverityError {
			msgs = append(msgs, iss.Error())
			continue
		}
		log.Printf("config %s", iss.Error())
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", engine.ErrConfigurationInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// logSummary prints the final counters. written + dropped never exceeds
// read; the gap is rows that failed after parsing.
func logSummary(r *engine.Result) {
	log.Printf(
		"summary: id=%s mode=%s fell_back=%v read=%d written=%d dropped=%d errors=%d files=%d elapsed=%s",
		r.RunID, r.Mode, r.FellBack, r.RowsRead, r.RowsWritten, r.RowsDropped, r.ErrorCount,
		len(r.Files), r.Elapsed.Truncate(time.Millisecond),
	)
	if r.RowsWritten+r.RowsDropped > r.RowsRead {
		log.Printf("WARNING: row accounting mismatch: read=%d written=%d dropped=%d",
			r.RowsRead, r.RowsWritten, r.RowsDropped)
	}
}

func saveManifest(ctx context.Context, m config.Manifest, res *engine.Result, started time.Time) (err error) {
	t0 := time.Now()
	defer func() { metrics.RecordStep(res.Job, "manifest", err, time.Since(t0)) }()

	repo, err := newManifest(ctx, manifest.Config{Kind: m.Kind, DSN: m.DSN, Table: m.Table})
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer repo.Close()
	if err := repo.SaveRun(ctx, ToManifest(res, started)); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// ToManifest converts a result into its ledger entry.
func ToManifest(r *engine.Result, started time.Time) manifest.Run {
	files := make([]manifest.File, len(r.Files))
	for i, f := range r.Files {
		files[i] = manifest.File{
			Partition: f.Partition,
			Index:     f.Index,
			Path:      f.Path,
			Rows:      f.Rows,
			Bytes:     f.Bytes,
			Checksum:  f.Checksum,
		}
	}
	return manifest.Run{
		ID:          r.RunID,
		Job:         r.Job,
		Mode:        string(r.Mode),
		FellBack:    r.FellBack,
		RowsRead:    r.RowsRead,
		RowsWritten: r.RowsWritten,
		RowsDropped: r.RowsDropped,
		ErrorCount:  r.ErrorCount,
		Elapsed:     r.Elapsed,
		StartedAt:   started,
		Files:       files,
	}
}
