package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestManager_RecordsDecodeOutcomes(t *testing.T) {
	t.Parallel()

	m := NewManager(WithRegistry(prometheus.NewRegistry()))
	m.RecordRepair("brace_balance", true)
	m.RecordRepair("brace_balance", true)
	m.RecordRepair("none", false)
	m.RecordDecode("success", false)

	if got := testutil.ToFloat64(m.repairAttempts.WithLabelValues("brace_balance", "repaired")); got != 2 {
		t.Fatalf("brace_balance repairs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.repairAttempts.WithLabelValues("none", "failed")); got != 1 {
		t.Fatalf("failed repairs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.decodes.WithLabelValues("success", "false")); got != 1 {
		t.Fatalf("success decodes = %v, want 1", got)
	}
}

func TestManager_StreamGauge(t *testing.T) {
	t.Parallel()

	m := NewManager()
	done := m.StreamOpened()
	if got := testutil.ToFloat64(m.activeStreams); got != 1 {
		t.Fatalf("active streams = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(m.activeStreams); got != 0 {
		t.Fatalf("active streams = %v, want 0", got)
	}
}

func TestManager_HandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.RecordUpload("nba", nil)
	m.RecordUpload("nba", errors.New("quota"))
	m.RecordGeneration("nba", "success", 3*time.Second)
	m.RecordHTTPRequest("/v1/sports", http.MethodGet, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`insights_files_uploads_total{result="error",sport="nba"} 1`,
		`insights_generation_duration_seconds_count{sport="nba",status="success"} 1`,
		`insights_http_requests_total{method="GET",route="/v1/sports",status_code="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestManager_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *Manager
	m.RecordRepair("as_is", true)
	m.RecordDecode("success", true)
	m.StreamOpened()()
	if m.Registry() != nil {
		t.Fatalf("nil manager should have no registry")
	}
}
