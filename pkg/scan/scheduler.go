package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs one cohort of fetches concurrently and waits for all of
// them. A cohort is a barrier: RunCohort returns only when every fetch is
// done.
type Scheduler struct {
	worker *Worker
	limit  int
}

// NewScheduler creates a scheduler running at most limit fetches at once.
func NewScheduler(worker *Worker, limit int) *Scheduler {
	if limit <= 0 {
		limit = 1
	}
	return &Scheduler{worker: worker, limit: limit}
}

// RunCohort fetches every range and returns the outcomes in input order,
// regardless of completion order.
func (s *Scheduler) RunCohort(ctx context.Context, ranges []Range) []Outcome {
	outcomes := make([]Outcome, len(ranges))

	var g errgroup.Group
	g.SetLimit(s.limit)
	for i, r := range ranges {
		g.Go(func() error {
			outcomes[i] = s.worker.Fetch(ctx, r)
			return nil
		})
	}
	// Workers report failures as outcomes, never as errors.
	_ = g.Wait()

	scanCohortsTotal.Inc()
	for _, o := range outcomes {
		scanRangesTotal.WithLabelValues(o.Kind.String()).Inc()
	}

	return outcomes
}
