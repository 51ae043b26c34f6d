package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceWorkflowCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition(OpApproveByAdmin, OutcomeSuccess)
	m.RecordTransition(OpApproveByAdmin, OutcomeSuccess)
	m.RecordTransition(OpReject, OutcomeInvalid)
	m.RecordSweep(SweepResult{Processed: 3, Failed: 1}, time.Second, nil)
	m.RecordSweep(SweepResult{}, time.Millisecond, errors.New("list failed"))

	require.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues(string(OpApproveByAdmin), OutcomeSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.transitions.WithLabelValues(string(OpReject), OutcomeInvalid)))
	require.Equal(t, float64(3), testutil.ToFloat64(m.sweepRecords.WithLabelValues(OutcomeSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.sweeps.WithLabelValues(OutcomeFailure)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "service_request_transitions_total"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	require.NotPanics(t, func() {
		m.RecordTransition(OpSubmit, OutcomeSuccess)
		m.RecordSweep(SweepResult{Processed: 1}, time.Second, nil)
		m.RecordNotification("submitted", OutcomeQueued)
		m.RecordCacheOperation(true, time.Millisecond)
	})
}
