package builtin

import (
	"encoding/json"
	"math"
	"testing"

	"csvsplit/pkg/records"
)

func TestAggregator_Statistics(t *testing.T) {
	headers := []string{"name", "age"}
	a := NewAggregator()
	for _, r := range []records.Record{
		{"name": "Alice", "age": "30"},
		{"name": "Bob", "age": "17"},
		{"name": "Alice", "age": ""},
		{"name": "Eve", "age": "x"},
	} {
		if _, ok := a.Transform(r, headers); !ok {
			t.Fatalf("Aggregator must pass rows through")
		}
	}

	st := a.Statistics()
	name := st["name"]
	if name.Count != 4 || name.NullCount != 0 || name.DistinctCount != 3 {
		t.Fatalf("name stats wrong: %+v", name)
	}
	if name.MinLength != 3 || name.MaxLength != 5 {
		t.Fatalf("name lengths wrong: %+v", name)
	}
	if name.NullPercentage != "0.00" || name.Numeric != nil {
		t.Fatalf("name should have no nulls and no numerics: %+v", name)
	}

	age := st["age"]
	if age.Count != 4 || age.NullCount != 1 || age.NullPercentage != "25.00" {
		t.Fatalf("age stats wrong: %+v", age)
	}
	if age.Numeric == nil || age.Numeric.Count != 2 {
		t.Fatalf("age numeric stats wrong: %+v", age.Numeric)
	}
	if age.Numeric.Min != 17 || age.Numeric.Max != 30 || age.Numeric.Mean != "23.50" || age.Numeric.Median != "23.50" {
		t.Fatalf("age numeric values wrong: %+v", age.Numeric)
	}
	if cols := a.Columns(); len(cols) != 2 || cols[0] != "name" {
		t.Fatalf("Columns()=%v", cols)
	}
}

func TestNumericStats_Median(t *testing.T) {
	tests := []struct {
		in     []float64
		median string
		mean   string
	}{
		{[]float64{5, 1, 3}, "3.00", "3.00"},
		{[]float64{4, 1, 3, 2}, "2.50", "2.50"},
		{[]float64{1, 2}, "1.50", "1.50"},
		{[]float64{10}, "10.00", "10.00"},
	}
	for _, tt := range tests {
		ns := numericStats(tt.in)
		if ns.Median != tt.median || ns.Mean != tt.mean {
			t.Fatalf("numericStats(%v) = median %s mean %s; want %s %s", tt.in, ns.Median, ns.Mean, tt.median, tt.mean)
		}
	}
}

/*
TestAggregator_Merge verifies that merging two partial aggregators yields the
same statistics as one aggregator that saw every row.
*/
func TestAggregator_Merge(t *testing.T) {
	headers := []string{"v"}
	rows := []records.Record{{"v": "1"}, {"v": "22"}, {"v": ""}, {"v": "1"}, {"v": "333"}}

	whole := NewAggregator()
	left, right := NewAggregator(), NewAggregator()
	for i, r := range rows {
		whole.Observe(r, headers)
		if i < 2 {
			left.Observe(r, headers)
		} else {
			right.Observe(r, headers)
		}
	}
	merged := NewAggregator()
	merged.Merge(left)
	merged.Merge(right)
	merged.Merge(nil)

	w, m := whole.Statistics()["v"], merged.Statistics()["v"]
	if w.Count != m.Count || w.NullCount != m.NullCount || w.DistinctCount != m.DistinctCount ||
		w.MinLength != m.MinLength || w.MaxLength != m.MaxLength || w.NullPercentage != m.NullPercentage {
		t.Fatalf("merged %+v; want %+v", m, w)
	}
	if *w.Numeric != *m.Numeric {
		t.Fatalf("merged numeric %+v; want %+v", *m.Numeric, *w.Numeric)
	}
}

/*
TestAggregator_NonFiniteNotNumeric verifies NaN and infinities are counted as
values but kept out of the numeric summary, so the statistics stay
JSON-encodable.
*/
func TestAggregator_NonFiniteNotNumeric(t *testing.T) {
	headers := []string{"v"}
	a := NewAggregator()
	for _, in := range []any{"NaN", "5", "Inf", math.Inf(-1), "-Infinity"} {
		a.Observe(records.Record{"v": in}, headers)
	}

	st := a.Statistics()["v"]
	if st.Count != 5 || st.Numeric == nil {
		t.Fatalf("stats wrong: %+v", st)
	}
	if st.Numeric.Count != 1 || st.Numeric.Min != 5 || st.Numeric.Max != 5 || st.Numeric.Mean != "5.00" {
		t.Fatalf("numeric stats should only see 5: %+v", *st.Numeric)
	}
	if _, err := json.Marshal(a.Statistics()); err != nil {
		t.Fatalf("statistics must encode: %v", err)
	}
}
