package transformer

import (
	"csvsplit/internal/config"
	"csvsplit/internal/transformer/builtin"
	"csvsplit/pkg/records"
)

var (
	_ Transformer  = builtin.ColumnFilter{}
	_ HeaderMapper = builtin.ColumnFilter{}
	_ Transformer  = (*builtin.TypeConverter)(nil)
	_ Transformer  = (*builtin.Validator)(nil)
	_ Transformer  = (*builtin.Aggregator)(nil)
	_ Observer     = (*builtin.Aggregator)(nil)
)

// Pipeline is an ordered chain of transformers plus an optional observer tap
// (normally a builtin.Aggregator).
type Pipeline struct {
	stages []Transformer
	// stageHeaders[i] is the header list seen by stages[i]; the last entry
	// is the output header list. Filled by OutputHeaders.
	stageHeaders [][]string
	tap          Observer
}

// New returns a pipeline running stages in order.
func New(stages ...Transformer) *Pipeline {
	return &Pipeline{stages: stages}
}

// WithObserver attaches an observer that sees the final form of every
// surviving row.
func (p *Pipeline) WithObserver(o Observer) *Pipeline {
	p.tap = o
	return p
}

// Len reports the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// OutputHeaders folds every HeaderMapper over in, in stage order. The result
// is cached for Transform; call it once per run before streaming.
func (p *Pipeline) OutputHeaders(in []string) []string {
	hs := make([][]string, 0, len(p.stages)+1)
	cur := append([]string(nil), in...)
	for _, s := range p.stages {
		hs = append(hs, cur)
		if m, ok := s.(HeaderMapper); ok {
			cur = m.MapHeaders(cur)
		}
	}
	hs = append(hs, cur)
	p.stageHeaders = hs
	return append([]string(nil), cur...)
}

// Transform runs rec through every stage. A drop short-circuits the rest of
// the pipeline and the observer.
func (p *Pipeline) Transform(rec records.Record, headers []string) (records.Record, bool) {
	if p.stageHeaders == nil {
		p.OutputHeaders(headers)
	}
	for i, s := range p.stages {
		var ok bool
		rec, ok = s.Transform(rec, p.stageHeaders[i])
		if !ok {
			return nil, false
		}
	}
	if p.tap != nil {
		p.tap.Observe(rec, p.stageHeaders[len(p.stageHeaders)-1])
	}
	return rec, true
}

// Hooks receive non-fatal events from the builtin stages.
type Hooks struct {
	OnConvertError func(column string, err error)
	OnReject       func(column, reason string)
}

// FromConfig builds the standard pipeline: ColumnFilter, TypeConverter,
// Validator, each only when configured. When generateStats is set the
// returned Aggregator is attached as the observer; otherwise it is nil.
func FromConfig(t config.Transformations, generateStats bool, h Hooks) (*Pipeline, *builtin.Aggregator, error) {
	var stages []Transformer
	if len(t.IncludeColumns) > 0 || len(t.ExcludeColumns) > 0 {
		stages = append(stages, builtin.ColumnFilter{Include: t.IncludeColumns, Exclude: t.ExcludeColumns})
	}
	if len(t.TypeConversions) > 0 {
		tc := builtin.NewTypeConverter(t.TypeConversions)
		tc.OnError = h.OnConvertError
		stages = append(stages, tc)
	}
	if len(t.Validation) > 0 {
		v, err := builtin.NewValidator(t.Validation)
		if err != nil {
			return nil, nil, err
		}
		v.OnReject = h.OnReject
		stages = append(stages, v)
	}

	p := New(stages...)
	var agg *builtin.Aggregator
	if generateStats {
		agg = builtin.NewAggregator()
		p.WithObserver(agg)
	}
	return p, agg, nil
}
