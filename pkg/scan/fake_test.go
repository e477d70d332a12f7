package scan

import (
	"context"
	"encoding/json"
	"sync"
)

// fakeSource is an in-memory PageSource that records calls and concurrency.
type fakeSource struct {
	fn func(ctx context.Context, r Range) ([]byte, error)

	mu          sync.Mutex
	calls       []Range
	inFlight    int
	maxInFlight int
}

func newFakeSource(fn func(ctx context.Context, r Range) ([]byte, error)) *fakeSource {
	return &fakeSource{fn: fn}
}

// dataSource serves records [0, total) with markers on the given indices.
func dataSource(total int64, markers map[int64]string) *fakeSource {
	return newFakeSource(func(_ context.Context, r Range) ([]byte, error) {
		return pageJSON(r, total, markers), nil
	})
}

func (f *fakeSource) FetchRange(ctx context.Context, r Range) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, r)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	return f.fn(ctx, r)
}

func (f *fakeSource) Calls() []Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Range, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeSource) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func pageJSON(r Range, total int64, markers map[int64]string) []byte {
	end := min(r.End, total)
	recs := []map[string]any{}
	for i := r.Start; i < end; i++ {
		rec := map[string]any{"id": i}
		if v, ok := markers[i]; ok {
			rec[DefaultMarkerField] = v
		}
		recs = append(recs, rec)
	}
	b, _ := json.Marshal(recs)
	return b
}
