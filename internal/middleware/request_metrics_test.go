package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bhackerb/PeakForm-C/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	r := mux.NewRouter()
	r.HandleFunc("/analysis", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods("POST").Name("analysis")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")
	r.Use(RequestMetrics(metricsManager))

	for _, req := range []*http.Request{
		httptest.NewRequest("POST", "/analysis", nil),
		httptest.NewRequest("POST", "/analysis", nil),
		httptest.NewRequest("GET", "/health", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("POST", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(metricsManager.HistogramRequestDuration))
}
