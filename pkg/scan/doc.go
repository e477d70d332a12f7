// Package scan provides an exhaustive, range-partitioned scan of a paginated
// source that stops as soon as a marker record is found or the source runs dry.
//
// The upstream index space is cut into contiguous, fixed-size ranges
// ([0,1000), [1000,2000), ...). Ranges are fetched in cohorts: up to
// CohortSize fetches run concurrently and the whole cohort is awaited before
// the next one is dispatched.
//
// Example usage:
//
//	src, err := source.New(source.DefaultConfig("http://localhost:5000/level2"))
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	orch := scan.NewOrchestrator(src, scan.DefaultConfig())
//	result, err := orch.Run(ctx)
//
// The orchestrator:
//   - Pulls ranges from a Sequencer
//   - Dispatches them cohort by cohort through a Scheduler
//   - Stops issuing cohorts once the termination Signal is set (marker found)
//   - Stops when a whole cohort returns no data (source exhausted)
//
// Stopping is cooperative. A fetch already in flight when the marker is found
// runs to completion unless Config.CancelInFlight is set.
package scan
