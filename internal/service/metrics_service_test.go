package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsWorkflow(t *testing.T) {
	m := NewMetricsService()
	m.RecordBookkeepingFailure("assignment")
	m.RecordBookkeepingFailure("assignment")
	m.RecordConfirmation(true)
	m.RecordSettlement("settled")
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/catalog/pricing", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `earnings_bookkeeping_failures_total{flow="assignment"} 2`)
	assert.Contains(t, body, `deliveries_confirmed_total{commission="paid"} 1`)
	assert.Contains(t, body, `payment_settlements_total{result="settled"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/v1/catalog/pricing",status="200"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordBookkeepingFailure("confirmation")
	m.RecordSubmission()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
