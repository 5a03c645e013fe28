package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analyses.WithLabelValues("LOW"))
	IncAnalysis("LOW")
	if got := testutil.ToFloat64(analyses.WithLabelValues("LOW")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestIncAnalysisInputError(t *testing.T) {
	before := testutil.ToFloat64(analysisInputErrors)
	IncAnalysisInputError()
	if got := testutil.ToFloat64(analysisInputErrors); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestObserveAnalysisDuration(t *testing.T) {
	ObserveAnalysisDuration(3 * time.Millisecond)
}

func TestIncPrediction(t *testing.T) {
	IncPrediction("ok")
	IncPrediction("unavailable")
	if got := testutil.ToFloat64(predictions.WithLabelValues("unavailable")); got < 1 {
		t.Errorf("expected at least 1, got %v", got)
	}
}

func TestSetClassifierAvailable(t *testing.T) {
	SetClassifierAvailable(true)
	if got := testutil.ToFloat64(classifierAvailable); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	SetClassifierAvailable(false)
	if got := testutil.ToFloat64(classifierAvailable); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestObserveOrder(t *testing.T) {
	before := testutil.ToFloat64(ordersCreated)
	ObserveOrder(260)
	if got := testutil.ToFloat64(ordersCreated); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
	IncPrescriptionAnalyzed("rules")
}

func TestIncRecordAccess(t *testing.T) {
	before := testutil.ToFloat64(recordAccess.WithLabelValues("orders", "read", "4xx"))
	IncRecordAccess("orders", "read", http.StatusNotFound)
	if got := testutil.ToFloat64(recordAccess.WithLabelValues("orders", "read", "4xx")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		201: "2xx",
		404: "4xx",
		503: "5xx",
		0:   "unknown",
		700: "unknown",
	}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestHandler(t *testing.T) {
	Register()
	Register()
	IncAnalysis("HIGH")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := Handler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "careassist_analyses_total") {
		t.Error("expected careassist_analyses_total in exposition")
	}
}
