package scan

import (
	"context"
	"encoding/json"
	"strings"
)

// DefaultMarkerField is the record key that carries the marker upstream.
const DefaultMarkerField = "flag"

// Record is one upstream entry: a mapping from field name to raw JSON value.
type Record map[string]json.RawMessage

// Page is the decoded response for one range, in upstream order.
type Page []Record

// PageSource fetches the raw JSON body for a single range.
// Implementations must be safe for concurrent use by one cohort of callers.
type PageSource interface {
	FetchRange(ctx context.Context, r Range) ([]byte, error)
}

// Matcher inspects a record and returns the marker value when the record
// carries one.
type Matcher func(rec Record) (json.RawMessage, bool)

// FieldMatcher matches any record that has the given field, whatever its value.
func FieldMatcher(field string) Matcher {
	return func(rec Record) (json.RawMessage, bool) {
		v, ok := rec[field]
		return v, ok
	}
}

// MarkerString renders a marker value for display. JSON strings are
// unquoted; anything else is returned as its JSON text.
func MarkerString(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return s
		}
	}
	return text
}
