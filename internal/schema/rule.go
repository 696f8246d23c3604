// Package schema describes per-column validation rules. It is shared by the
// configuration model and the builtin Validator so that rules can be decoded
// straight from a config file.
package schema

// Rule lists the constraints applied to one column. Zero values mean "not
// configured": a nil pointer bound is not checked, an empty Pattern or Enum
// is not checked.
//
// Example (JSON):
//
//	{ "required": true, "type": "number", "min": 18, "enum": ["a","b"] }
type Rule struct {
	Required  bool     `json:"required,omitempty"`
	Type      string   `json:"type,omitempty"` // number|integer|boolean|date|email|url
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Enum      []string `json:"enum,omitempty"`
}

// Known rule types accepted by Rule.Type.
var RuleTypes = map[string]struct{}{
	"number":  {},
	"integer": {},
	"boolean": {},
	"date":    {},
	"email":   {},
	"url":     {},
}

// Int and Float are small helpers for building rules in code and tests.
func Int(n int) *int { return &n }

func Float(f float64) *float64 { return &f }
