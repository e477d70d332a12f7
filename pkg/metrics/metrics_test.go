package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	ranges := promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_handler_test_ranges_total",
		Help: "Counter registered by the handler test",
	}, []string{"outcome"})
	ranges.WithLabelValues("found").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "# TYPE metrics_handler_test_ranges_total counter")
	assert.Contains(t, body, `metrics_handler_test_ranges_total{outcome="found"} 1`)
}
