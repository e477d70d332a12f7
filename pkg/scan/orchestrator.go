package scan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sternrassler/range-scanner/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds scan configuration.
type Config struct {
	// BatchSize is the number of indices per range.
	BatchSize int64

	// CohortSize is the number of ranges fetched concurrently per cohort.
	// Recommendation: 10, the load the upstream was sized for.
	CohortSize int

	// Start is the first index of the first range.
	Start int64

	// MarkerField is the record key that marks a match. Ignored when
	// Matcher is set.
	MarkerField string

	// Matcher overrides the default field-presence rule.
	Matcher Matcher

	// RequestTimeout bounds a single range fetch (0 disables it).
	RequestTimeout time.Duration

	// CancelInFlight aborts in-flight sibling fetches once the marker is
	// found. Off by default: running fetches complete and are discarded.
	CancelInFlight bool
}

// DefaultConfig returns the default scan configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:      1000,
		CohortSize:     10,
		MarkerField:    DefaultMarkerField,
		RequestTimeout: 15 * time.Second,
	}
}

// Reason tells why a run stopped.
type Reason string

const (
	// ReasonFound means a marker was found.
	ReasonFound Reason = "found"

	// ReasonExhausted means a whole cohort returned no data.
	ReasonExhausted Reason = "exhausted"

	// ReasonCancelled means the caller's context ended the run.
	ReasonCancelled Reason = "cancelled"
)

// Result summarizes a finished run.
type Result struct {
	Found bool
	// Marker is the display form of the matched value (see MarkerString).
	Marker    string
	RawMarker json.RawMessage
	Record    Record
	Range     Range

	Reason   Reason
	Cohorts  int
	Ranges   int
	Failed   int
	Duration time.Duration
}

// Orchestrator drives a scan: it pulls ranges, dispatches them in cohorts
// and decides when to stop.
type Orchestrator struct {
	source PageSource
	config Config
	logger zerolog.Logger
}

// NewOrchestrator creates an orchestrator over source. Invalid sizes fall
// back to the defaults.
func NewOrchestrator(source PageSource, config Config) *Orchestrator {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.CohortSize <= 0 {
		config.CohortSize = def.CohortSize
	}
	if config.Start < 0 {
		config.Start = 0
	}
	if config.MarkerField == "" {
		config.MarkerField = def.MarkerField
	}
	if config.Matcher == nil {
		config.Matcher = FieldMatcher(config.MarkerField)
	}

	return &Orchestrator{
		source: source,
		config: config,
		logger: logging.NewLogger("orchestrator"),
	}
}

// Run scans until the marker is found, the source is exhausted or ctx is
// done. Not finding the marker is not an error; the only error returned is
// ctx.Err() on cancellation, together with the partial result.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger := o.logger.With().Str("run_id", uuid.NewString()).Logger()

	signal := NewSignal(ctx)
	defer signal.release()

	seq := NewSequencer(o.config.Start, o.config.BatchSize)
	worker := NewWorker(o.source, signal, o.config)
	scheduler := NewScheduler(worker, o.config.CohortSize)

	logger.Info().
		Int64("start", o.config.Start).
		Int64("batch_size", o.config.BatchSize).
		Int("cohort_size", o.config.CohortSize).
		Msg("Starting scan")

	result := &Result{}
	pending := make([]Range, 0, o.config.CohortSize)

	for !signal.IsSet() {
		if err := ctx.Err(); err != nil {
			return o.finish(logger, result, ReasonCancelled, start), err
		}

		for len(pending) < o.config.CohortSize {
			pending = append(pending, seq.Next())
		}

		outcomes := scheduler.RunCohort(ctx, pending)
		pending = pending[:0]
		result.Cohorts++

		if !o.inspect(logger, result, outcomes) {
			if err := ctx.Err(); err != nil {
				return o.finish(logger, result, ReasonCancelled, start), err
			}
			logger.Info().
				Int("cohort", result.Cohorts).
				Int64("cursor", seq.Cursor()).
				Msg("No more data to fetch")
			return o.finish(logger, result, ReasonExhausted, start), nil
		}
	}

	return o.finish(logger, result, ReasonFound, start), nil
}

// inspect logs every outcome of a cohort, folds it into result and reports
// whether the cohort carried any data.
func (o *Orchestrator) inspect(logger zerolog.Logger, result *Result, outcomes []Outcome) bool {
	hasData := false
	for _, oc := range outcomes {
		result.Ranges++
		if oc.HasData() {
			hasData = true
		}

		switch oc.Kind {
		case OutcomeFailed:
			result.Failed++
			logger.Warn().
				Err(oc.Err).
				Int64("start", oc.Range.Start).
				Int64("end", oc.Range.End).
				Str("outcome", oc.Kind.String()).
				Msg("Failed to fetch range")
			continue
		case OutcomeFound:
			// Outcomes are in range order, so the lowest match wins.
			if !result.Found {
				result.Found = true
				result.RawMarker = oc.Marker
				result.Marker = MarkerString(oc.Marker)
				result.Record = oc.MarkerRecord
				result.Range = oc.Range
			}
			logger.Info().
				Int64("start", oc.Range.Start).
				Int64("end", oc.Range.End).
				Str("marker", MarkerString(oc.Marker)).
				Msg("Found marker")
		}

		logger.Info().
			Int64("start", oc.Range.Start).
			Int64("end", oc.Range.End).
			Str("outcome", oc.Kind.String()).
			Int("records", len(oc.Page)).
			Bool("skipped", oc.Skipped).
			Msg("Fetched range")
	}
	return hasData
}

func (o *Orchestrator) finish(logger zerolog.Logger, result *Result, reason Reason, start time.Time) *Result {
	result.Reason = reason
	result.Duration = time.Since(start)
	scanTerminationTotal.WithLabelValues(string(reason)).Inc()

	event := logger.Info().
		Str("reason", string(reason)).
		Int("cohorts", result.Cohorts).
		Int("ranges", result.Ranges).
		Int("failed", result.Failed).
		Dur("duration", result.Duration)
	if result.Found {
		event = event.Str("marker", result.Marker).Str("range", result.Range.String())
	}
	event.Msg("Scan complete")

	return result
}
