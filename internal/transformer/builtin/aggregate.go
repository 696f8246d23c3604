package builtin

import (
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"csvsplit/pkg/records"
)

// ColumnStats is the per-column summary produced by Aggregator.Statistics.
type ColumnStats struct {
	Count          int64         `json:"count"`
	NullCount      int64         `json:"nullCount"`
	NullPercentage string        `json:"nullPercentage"`
	DistinctCount  int           `json:"distinctCount"`
	MinLength      int           `json:"minLength"`
	MaxLength      int           `json:"maxLength"`
	Numeric        *NumericStats `json:"numeric,omitempty"`
}

// NumericStats is present only when at least one value parsed as a number.
type NumericStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   string  `json:"mean"`
	Median string  `json:"median"`
}

type columnAcc struct {
	count    int64
	nulls    int64
	distinct map[string]struct{}
	numbers  []float64
	minLen   int
	maxLen   int
	sized    bool
}

// Aggregator accumulates per-column statistics. As a Transformer it is a
// pass-through; the pipeline calls Observe on every row that survives.
type Aggregator struct {
	cols  map[string]*columnAcc
	order []string
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{cols: map[string]*columnAcc{}}
}

// Transform observes rec and returns it unchanged.
func (a *Aggregator) Transform(rec records.Record, headers []string) (records.Record, bool) {
	a.Observe(rec, headers)
	return rec, true
}

// Observe records every column in headers. Columns missing from rec count as
// nulls.
func (a *Aggregator) Observe(rec records.Record, headers []string) {
	for _, h := range headers {
		acc := a.column(h)
		acc.count++
		v := rec[h]
		if records.IsEmpty(v) {
			acc.nulls++
			continue
		}
		s := asString(v)
		acc.distinct[s] = struct{}{}
		if f, ok := asNumber(v); ok {
			acc.numbers = append(acc.numbers, f)
		}
		n := utf8.RuneCountInString(s)
		if !acc.sized || n < acc.minLen {
			acc.minLen = n
		}
		if !acc.sized || n > acc.maxLen {
			acc.maxLen = n
		}
		acc.sized = true
	}
}

func (a *Aggregator) column(name string) *columnAcc {
	if a.cols == nil {
		a.cols = map[string]*columnAcc{}
	}
	acc, ok := a.cols[name]
	if !ok {
		acc = &columnAcc{distinct: map[string]struct{}{}}
		a.cols[name] = acc
		a.order = append(a.order, name)
	}
	return acc
}

// Columns lists observed columns in first-seen order.
func (a *Aggregator) Columns() []string {
	return append([]string(nil), a.order...)
}

// Merge folds other into a. Used to combine per-partition aggregators.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		src := other.cols[name]
		dst := a.column(name)
		dst.count += src.count
		dst.nulls += src.nulls
		for k := range src.distinct {
			dst.distinct[k] = struct{}{}
		}
		dst.numbers = append(dst.numbers, src.numbers...)
		if src.sized {
			if !dst.sized || src.minLen < dst.minLen {
				dst.minLen = src.minLen
			}
			if !dst.sized || src.maxLen > dst.maxLen {
				dst.maxLen = src.maxLen
			}
			dst.sized = true
		}
	}
}

// Statistics summarizes every observed column.
func (a *Aggregator) Statistics() map[string]ColumnStats {
	out := make(map[string]ColumnStats, len(a.cols))
	for name, acc := range a.cols {
		st := ColumnStats{
			Count:         acc.count,
			NullCount:     acc.nulls,
			DistinctCount: len(acc.distinct),
			MinLength:     acc.minLen,
			MaxLength:     acc.maxLen,
		}
		pct := 0.0
		if acc.count > 0 {
			pct = float64(acc.nulls) / float64(acc.count) * 100
		}
		st.NullPercentage = fixed2(pct)
		if len(acc.numbers) > 0 {
			st.Numeric = numericStats(acc.numbers)
		}
		out[name] = st
	}
	return out
}

func numericStats(nums []float64) *NumericStats {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, f := range sorted {
		sum += f
	}
	n := len(sorted)
	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}
	return &NumericStats{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   fixed2(sum / float64(n)),
		Median: fixed2(median),
	}
}

// fixed2 renders f with exactly two decimals.
func fixed2(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
