package records

import "testing"

func TestFromFields(t *testing.T) {
	headers := []string{"id", "name", "age"}

	r := FromFields(headers, []string{"1", "Alice"})
	if got := r["id"]; got != "1" {
		t.Fatalf("id=%v; want 1", got)
	}
	if got := r["age"]; got != "" {
		t.Fatalf("missing trailing field=%v; want empty string", got)
	}

	r = FromFields(headers, []string{"1", "Alice", "30", "extra"})
	if len(r) != 3 {
		t.Fatalf("len=%d; want 3 (surplus fields ignored)", len(r))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	if r["a"] != "1" {
		t.Fatalf("clone mutated original: %v", r)
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{nil, true},
		{"", true},
		{" ", false},
		{0, false},
		{false, false},
	}
	for _, c := range cases {
		if got := IsEmpty(c.v); got != c.want {
			t.Fatalf("IsEmpty(%#v)=%v; want %v", c.v, got, c.want)
		}
	}
}
