package scan

import "fmt"

// Range is a half-open interval [Start, End) of upstream indices.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of indices covered by the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// String formats the range as "start-end".
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Sequencer hands out contiguous, non-overlapping ranges of a fixed size.
// It is not safe for concurrent use; only the orchestrator pulls from it.
type Sequencer struct {
	cursor    int64
	batchSize int64
}

// NewSequencer creates a sequencer whose first range starts at start.
func NewSequencer(start, batchSize int64) *Sequencer {
	if start < 0 {
		start = 0
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Sequencer{
		cursor:    start,
		batchSize: batchSize,
	}
}

// Next returns the next range and advances the cursor by the batch size.
func (s *Sequencer) Next() Range {
	r := Range{Start: s.cursor, End: s.cursor + s.batchSize}
	s.cursor = r.End
	return r
}

// Cursor returns the next unallocated start index.
func (s *Sequencer) Cursor() int64 {
	return s.cursor
}
