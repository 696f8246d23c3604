package partition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"csvsplit/internal/config"
	"csvsplit/internal/datasource/file"
	"csvsplit/internal/engine"
	"csvsplit/internal/metrics"
)

// State is the lifecycle of a Coordinator.
type State int

const (
	StateIdle State = iota
	StatePartitioning
	StateDispatching
	StateMerging
	StateDone
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePartitioning:
		return "partitioning"
	case StateDispatching:
		return "dispatching"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateFallback:
		return "fallback"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// runSplit executes one partition. Tests swap it to inject failures.
var runSplit = func(ctx context.Context, s *engine.Split) (*engine.Result, error) {
	return s.Run(ctx)
}

// Coordinator plans, dispatches and merges partitions for one run. At most
// Config.Runtime.WorkerCount partitions are in flight; a finished partition's
// slot is refilled immediately.
type Coordinator struct {
	Config config.Config

	// Sequential redoes the whole file when a partition fails. Nil means
	// engine.Sequential.
	Sequential func(ctx context.Context, cfg config.Config) (*engine.Result, error)

	mu    sync.Mutex
	state State
}

// New returns a coordinator for cfg.
func New(cfg config.Config) *Coordinator {
	return &Coordinator{Config: cfg}
}

// State reports where the coordinator is in its lifecycle.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run splits the source in parallel. Source and configuration failures are
// returned as is. A worker failure triggers a sequential rerun of the whole
// file; files already written by partitions are left in place.
func (c *Coordinator) Run(ctx context.Context) (*engine.Result, error) {
	cfg := c.Config
	started := time.Now()

	c.setState(StatePartitioning)
	in, err := engine.Prepare(ctx, cfg)
	if err != nil {
		c.setState(StateDone)
		return nil, err
	}
	ranges := Plan(in.Size, cfg.Runtime.WorkerCount, cfg.Runtime.ChunkSizeBytes)
	if !cfg.Quiet {
		log.Printf("partition plan: size=%s chunk=%s partitions=%d workers=%d",
			humanize.IBytes(uint64(in.Size)),
			humanize.IBytes(uint64(ChunkSize(in.Size, cfg.Runtime.WorkerCount, cfg.Runtime.ChunkSizeBytes))),
			len(ranges), cfg.Runtime.WorkerCount)
	}

	c.setState(StateDispatching)
	results, err := c.dispatch(ctx, in, ranges)
	metrics.RecordStep(cfg.Job, "partition", err, time.Since(started))
	if err != nil {
		if ctx.Err() != nil {
			c.setState(StateDone)
			return nil, ctx.Err()
		}
		return c.fallback(ctx, err)
	}

	c.setState(StateMerging)
	res := &engine.Result{
		Job:     cfg.Job,
		Mode:    engine.ModeParallel,
		Headers: in.Headers,
	}
	for _, r := range results {
		res.Merge(r)
	}
	res.Elapsed = time.Since(started)
	c.setState(StateDone)
	return res, nil
}

// dispatch runs every range and returns the results in partition order.
func (c *Coordinator) dispatch(ctx context.Context, in *engine.Input, ranges []Range) ([]*engine.Result, error) {
	cfg := c.Config
	results := make([]*engine.Result, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Runtime.WorkerCount)

	for i, rg := range ranges {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: partition %d: panic: %v", engine.ErrWorkerFailure, rg.Index, r)
				}
			}()
			s := &engine.Split{
				Config:     cfg,
				Headers:    in.Headers,
				Source:     file.NewRange(in.Path, rg.Start, rg.End),
				SkipHeader: rg.Start == 0,
				Partition:  rg.Index,
				Date:       in.Date,
			}
			res, err := runSplit(gctx, s)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() == nil {
					// canceled because a sibling failed; that error is reported
					return err
				}
				return fmt.Errorf("%w: partition %d: %v", engine.ErrWorkerFailure, rg.Index, err)
			}
			results[i] = res
			if !cfg.Quiet {
				log.Printf("partition=%d done: range=[%d,%d) read=%d written=%d files=%d",
					rg.Index, rg.Start, rg.End, res.RowsRead, res.RowsWritten, len(res.Files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Coordinator) fallback(ctx context.Context, cause error) (*engine.Result, error) {
	cfg := c.Config
	c.setState(StateFallback)
	log.Printf("parallel run failed, falling back to sequential: %v", cause)

	seq := c.Sequential
	if seq == nil {
		seq = engine.Sequential
	}
	started := time.Now()
	res, err := seq(ctx, cfg)
	metrics.RecordStep(cfg.Job, "fallback", err, time.Since(started))
	c.setState(StateDone)
	if err != nil {
		return nil, fmt.Errorf("sequential fallback after %v: %w", cause, err)
	}
	res.FellBack = true
	return res, nil
}
