package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Fatal error kinds. Callers match them with errors.Is.
var (
	// ErrSourceUnavailable: the source path is missing, unreadable, or has no
	// header record. Nothing is written.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrConfigurationInvalid: the resolved config failed validation.
	ErrConfigurationInvalid = errors.New("configuration invalid")

	// ErrWorkerFailure: a parallel partition could not complete. The
	// coordinator recovers from it by falling back to a sequential run.
	ErrWorkerFailure = errors.New("worker failure")
)

// Row-level stages reported in RowError.Stage.
const (
	StageParse     = "parse"
	StageConvert   = "convert"
	StageTransform = "transform"
	StageWrite     = "write"
)

// MaxErrorsKept caps Result.Errors; Result.ErrorCount keeps the full total.
const MaxErrorsKept = 100

// previewErrors is how many messages per stage are logged at the end of a run.
const previewErrors = 3

// RowError is a non-fatal failure tied to one source row. Line is the record
// number within the stream that produced it (partition-relative in parallel
// mode), 0 when unknown.
type RowError struct {
	Line   int
	Stage  string
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d: %s %s: %v", e.Line, e.Stage, e.Column, e.Err)
	}
	return fmt.Sprintf("row %d: %s: %v", e.Line, e.Stage, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// errAgg aggregates row errors: it counts every one, keeps the first limit
// messages, and buckets by stage for the end-of-run preview.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int64
	first   []string
	buckets map[string][]string
	totals  map[string]int64
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: map[string][]string{}, totals: map[string]int64{}}
}

func (a *errAgg) add(e *RowError) {
	msg := e.Error()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.first) < a.limit {
		a.first = append(a.first, msg)
	}
	if len(a.buckets[e.Stage]) < previewErrors {
		a.buckets[e.Stage] = append(a.buckets[e.Stage], msg)
	}
	a.totals[e.Stage]++
	a.count++
}

// logPreview prints per-stage totals and the first few messages of each.
func (a *errAgg) logPreview(prefix string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, stage := range []string{StageParse, StageConvert, StageTransform, StageWrite} {
		n := a.totals[stage]
		if n == 0 {
			continue
		}
		log.Printf("%s%s errors: %d (showing first %d)", prefix, stage, n, len(a.buckets[stage]))
		for i, s := range a.buckets[stage] {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
}
