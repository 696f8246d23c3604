package engine

import (
	"time"

	"csvsplit/internal/transformer/builtin"
)

// Mode is the execution mode that produced a Result.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
)

// FileInfo describes one finalized output file.
type FileInfo struct {
	// Partition is the 1-based partition index, 0 in sequential mode.
	Partition int `json:"partition,omitempty"`
	// Index is the 1-based file index within the run or partition.
	Index    int    `json:"index"`
	Path     string `json:"path"`
	Rows     int64  `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum"` // xxh3-64, hex
}

// Result is the summary handed back to the caller of a run.
type Result struct {
	RunID string `json:"runId"`
	Job   string `json:"job"`
	Mode  Mode   `json:"mode"`
	// FellBack is set when a parallel run failed and was redone sequentially.
	FellBack bool `json:"fellBack,omitempty"`

	RowsRead    int64 `json:"rowsRead"`
	RowsWritten int64 `json:"rowsWritten"`
	RowsDropped int64 `json:"rowsDropped"`
	ErrorCount  int64 `json:"errorCount"`

	Files []FileInfo `json:"files"`
	// Errors holds the first MaxErrorsKept non-fatal error messages.
	Errors []string `json:"errors,omitempty"`

	Headers       []string `json:"headers"`
	OutputHeaders []string `json:"outputHeaders"`

	Elapsed time.Duration `json:"elapsed"`

	// Stats is set when generate_stats is enabled.
	Stats map[string]builtin.ColumnStats `json:"stats,omitempty"`

	// Aggregator backs Stats; the partition coordinator merges these.
	Aggregator *builtin.Aggregator `json:"-"`
}

// Merge folds a partition result into r: counters are summed, files and
// errors concatenated, aggregators merged.
func (r *Result) Merge(p *Result) {
	if p == nil {
		return
	}
	r.RowsRead += p.RowsRead
	r.RowsWritten += p.RowsWritten
	r.RowsDropped += p.RowsDropped
	r.ErrorCount += p.ErrorCount
	r.Files = append(r.Files, p.Files...)
	for _, e := range p.Errors {
		if len(r.Errors) >= MaxErrorsKept {
			break
		}
		r.Errors = append(r.Errors, e)
	}
	if r.Headers == nil {
		r.Headers = p.Headers
	}
	if r.OutputHeaders == nil {
		r.OutputHeaders = p.OutputHeaders
	}
	if p.Aggregator != nil {
		if r.Aggregator == nil {
			r.Aggregator = builtin.NewAggregator()
		}
		r.Aggregator.Merge(p.Aggregator)
	}
}

// FinalizeStats fills Stats from the aggregator, if any.
func (r *Result) FinalizeStats() {
	if r.Aggregator != nil {
		r.Stats = r.Aggregator.Statistics()
	}
}
