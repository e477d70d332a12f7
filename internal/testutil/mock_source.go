// Package testutil provides testing utilities for the range scanner.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockPath is the endpoint path served by MockSource.
const MockPath = "/level2"

// Request is one range request observed by the mock.
type Request struct {
	Start int64
	End   int64
}

// MockSource is a configurable mock of the paginated upstream. Records exist
// for indices [0, total); each is {"id": i}, plus the marker field on the
// indices registered with SetMarker.
type MockSource struct {
	server *httptest.Server

	mu          sync.RWMutex
	total       int64
	markerField string
	markers     map[int64]string
	failures    map[int64]int
	malformed   map[int64]bool
	delay       time.Duration
	rangeDelays map[int64]time.Duration

	// Tracking
	requests    []Request
	inFlight    int
	maxInFlight int
	cancelled   int
}

// NewMockSource creates a mock upstream holding total records.
func NewMockSource(total int64) *MockSource {
	mock := &MockSource{
		total:       total,
		markerField: "flag",
		markers:     make(map[int64]string),
		failures:    make(map[int64]int),
		malformed:   make(map[int64]bool),
		rangeDelays: make(map[int64]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(MockPath, mock.handle)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the full endpoint URL.
func (m *MockSource) URL() string {
	return m.server.URL + MockPath
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// SetMarker puts a marker with value on the record at index.
func (m *MockSource) SetMarker(index int64, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[index] = value
}

// SetMarkerField changes the field name used for markers.
func (m *MockSource) SetMarkerField(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markerField = field
}

// FailRange makes requests starting at start answer with status.
func (m *MockSource) FailRange(start int64, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[start] = status
}

// MalformRange makes requests starting at start return invalid JSON.
func (m *MockSource) MalformRange(start int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed[start] = true
}

// SetDelay delays every response. The delay ends early if the client goes away.
func (m *MockSource) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetRangeDelay overrides the delay for requests starting at start.
// A zero d makes that range answer immediately.
func (m *MockSource) SetRangeDelay(start int64, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeDelays[start] = d
}

// Requests returns the observed requests in arrival order.
func (m *MockSource) Requests() []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to the server.
func (m *MockSource) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (m *MockSource) MaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

// CancelledCount returns how many requests were abandoned by the client
// while the mock was delaying them.
func (m *MockSource) CancelledCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancelled
}

// MaxRequestedIndex returns the largest end index requested, or 0.
func (m *MockSource) MaxRequestedIndex() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var highest int64
	for _, r := range m.requests {
		if r.End > highest {
			highest = r.End
		}
	}
	return highest
}

func (m *MockSource) handle(w http.ResponseWriter, r *http.Request) {
	start, errStart := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	end, errEnd := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if errStart != nil || errEnd != nil || start < 0 || end < start {
		http.Error(w, `{"error": "invalid range"}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, Request{Start: start, End: end})
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay
	if d, ok := m.rangeDelays[start]; ok {
		delay = d
	}
	status, failing := m.failures[start]
	malformed := m.malformed[start]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			m.mu.Lock()
			m.cancelled++
			m.mu.Unlock()
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if failing {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": "upstream failure"}`))
		return
	}

	if malformed {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id": 1,`))
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(m.records(start, end))
}

// records builds the page for [start, end).
func (m *MockSource) records(start, end int64) []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if end > m.total {
		end = m.total
	}
	page := make([]map[string]any, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		rec := map[string]any{"id": i}
		if v, ok := m.markers[i]; ok {
			rec[m.markerField] = v
		}
		page = append(page, rec)
	}
	return page
}
