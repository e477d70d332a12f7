package scan

import "encoding/json"

// OutcomeKind classifies the result of fetching one range.
type OutcomeKind int

const (
	// OutcomeEmpty is a well-formed page with no records, or a fetch skipped
	// because the signal was already set.
	OutcomeEmpty OutcomeKind = iota

	// OutcomeOK is a page with records but no marker.
	OutcomeOK

	// OutcomeFound is a page with at least one marker-bearing record.
	OutcomeFound

	// OutcomeFailed is a transport, status or decode failure.
	OutcomeFailed
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeOK:
		return "ok"
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what a worker reports for one range.
type Outcome struct {
	Range Range
	Kind  OutcomeKind

	// Page is the full decoded page, returned even when a marker matched.
	Page Page

	// Marker and MarkerRecord are set for OutcomeFound: the first match in
	// page order.
	Marker       json.RawMessage
	MarkerRecord Record

	// Skipped is true when the worker returned Empty without doing I/O.
	Skipped bool

	// Err is the failure reason for OutcomeFailed.
	Err error
}

// HasData reports whether the outcome counts as real data for the
// exhaustion check.
func (o Outcome) HasData() bool {
	return o.Kind == OutcomeOK || o.Kind == OutcomeFound
}
