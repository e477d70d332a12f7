package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrDecode marks a page body that is not a JSON array of objects.
var ErrDecode = errors.New("decode page")

// Worker fetches one range, decodes the page and scans it for the marker.
// A Worker is stateless apart from its collaborators and is shared by all
// fetches of a run.
type Worker struct {
	source         PageSource
	match          Matcher
	signal         *Signal
	timeout        time.Duration
	cancelInFlight bool
	logger         zerolog.Logger
}

// NewWorker creates a worker over source that reports matches through
// signal. Only the matching, timeout and preemption fields of config are used.
func NewWorker(source PageSource, signal *Signal, config Config) *Worker {
	match := config.Matcher
	if match == nil {
		field := config.MarkerField
		if field == "" {
			field = DefaultMarkerField
		}
		match = FieldMatcher(field)
	}
	return &Worker{
		source:         source,
		match:          match,
		signal:         signal,
		timeout:        config.RequestTimeout,
		cancelInFlight: config.CancelInFlight,
		logger:         logging.NewLogger("worker"),
	}
}

// Fetch executes one range fetch. It never returns an error: failures are
// reported as OutcomeFailed.
func (w *Worker) Fetch(ctx context.Context, r Range) Outcome {
	// Cheap short-circuit only: a sibling may set the signal right after.
	if w.signal.IsSet() {
		return Outcome{Range: r, Kind: OutcomeEmpty, Skipped: true}
	}

	// The fetch context is the abort point. With cancelInFlight it follows
	// the signal, otherwise an in-flight fetch outlives a match elsewhere.
	fetchCtx := ctx
	if w.cancelInFlight {
		fetchCtx = w.signal.Context()
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		scanFetchDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := w.source.FetchRange(fetchCtx, r)
	if err != nil {
		return Outcome{Range: r, Kind: OutcomeFailed, Err: err}
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return Outcome{Range: r, Kind: OutcomeFailed, Err: fmt.Errorf("%w %s: %v", ErrDecode, r, err)}
	}

	if len(page) == 0 {
		return Outcome{Range: r, Kind: OutcomeEmpty}
	}

	for _, rec := range page {
		marker, ok := w.match(rec)
		if !ok {
			continue
		}
		if w.signal.Set() {
			w.logger.Debug().
				Str("range", r.String()).
				Msg("Marker found, termination signalled")
		}
		return Outcome{
			Range:        r,
			Kind:         OutcomeFound,
			Page:         page,
			Marker:       marker,
			MarkerRecord: rec,
		}
	}

	return Outcome{Range: r, Kind: OutcomeOK, Page: page}
}
