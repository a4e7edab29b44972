package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 30*time.Millisecond)
	m.ObserveDBQuery("transcript_rows", 4*time.Millisecond)
	m.RecordAdmission(admissionOutcomeAdmitted)
	m.RecordAdmission(admissionOutcomeAdmitted)
	m.RecordAdmission("CLASS_FULL")

	snap := m.Snapshot()
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.Equal(t, uint64(2), snap.Admissions[admissionOutcomeAdmitted])
	assert.Equal(t, uint64(1), snap.Admissions["CLASS_FULL"])
}

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordAdmission("PREREQUISITE_NOT_MET")
	m.RecordCancellation()
	m.RecordExport("pdf")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `enrollment_admissions_total{outcome="PREREQUISITE_NOT_MET"} 1`)
	assert.Contains(t, body, "enrollment_cancellations_total 1")
	assert.Contains(t, body, `transcript_exports_total{format="pdf"} 1`)
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordAdmission("admitted")
	m.RecordCancellation()
	m.ObserveDBQuery("x", time.Millisecond)

	assert.Empty(t, m.Snapshot().Admissions)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
