// Package writer implements the per-format output encoders used by the split
// engine. Every format follows the same four-call contract: a header when a
// file is opened, one call per row, a footer before the file is closed, and
// the file extension used when naming output files.
//
// Formats register themselves by name at init time, the same way storage
// backends do; New looks the name up.
package writer

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

// Writer encodes rows of one output file. Implementations may buffer
// (columnar) or track framing state (json); WriteHeader resets that state, so
// one Writer can be reused across rotated files but never across goroutines.
type Writer interface {
	WriteHeader(w io.Writer, headers []string) error
	WriteRow(w io.Writer, rec records.Record, headers []string) error
	WriteFooter(w io.Writer) error
	Extension() string
}

// Factory builds a Writer from format-specific options.
type Factory func(opts config.Options) Writer

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds or replaces the factory for a format name.
func Register(format string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(format)] = f
}

// New returns a fresh Writer for format.
func New(format string, opts config.Options) (Writer, error) {
	mu.RLock()
	f, ok := factories[strings.ToLower(format)]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("writer: unsupported output format %q (known: %s)", format, strings.Join(Formats(), ", "))
	}
	if opts == nil {
		opts = config.Options{}
	}
	return f(opts), nil
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// formatValue renders a cell for the text formats.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.Abs(t) < 1e21 {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
