package symptom

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T, withModel bool) (*Handler, *echo.Echo) {
	svc := newTestService(t, withModel)
	h := NewHandler(svc)
	e := echo.New()
	return h, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Analyze(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":"chest pain, shortness of breath","age":"45"}`), rec)

	if err := h.Analyze(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.UrgencyLevel != UrgencyEmergency {
		t.Errorf("expected EMERGENCY, got %q", res.UrgencyLevel)
	}
}

func TestHandler_Analyze_EmptySymptoms(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":""}`), rec)

	if err := h.Analyze(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected error field, got %s", rec.Body.String())
	}
}

func TestHandler_Analyze_BadJSON(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":`), rec)

	err := h.Analyze(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_Predict(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":["fever","cough"]}`), rec)

	if err := h.Predict(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"prediction":"Flu"`) {
		t.Errorf("expected Flu prediction, got %s", rec.Body.String())
	}
}

func TestHandler_Predict_Errors(t *testing.T) {
	h, e := newTestHandler(t, true)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":[]}`), httptest.NewRecorder())
	if he, ok := h.Predict(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Error("expected 400 for empty symptom list")
	}

	h, e = newTestHandler(t, false)
	c = e.NewContext(jsonRequest(http.MethodPost, `{"symptoms":["fever"]}`), httptest.NewRecorder())
	if he, ok := h.Predict(c).(*echo.HTTPError); !ok || he.Code != http.StatusServiceUnavailable {
		t.Error("expected 503 without a classifier")
	}
}

func TestHandler_ListSymptoms(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.ListSymptoms(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":4`) {
		t.Errorf("expected total 4, got %s", rec.Body.String())
	}
}

func TestHandler_ListDiseases(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=5&offset=5", nil), rec)

	if err := h.ListDiseases(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []DiseaseSummary `json:"data"`
		Total   int              `json:"total"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 5 || body.Total != 20 || !body.HasMore {
		t.Errorf("unexpected page: %d items, total %d, has_more %v", len(body.Data), body.Total, body.HasMore)
	}
	if body.Data[0].ID != 6 {
		t.Errorf("expected first id 6, got %d", body.Data[0].ID)
	}
}

func TestHandler_GetDisease(t *testing.T) {
	h, e := newTestHandler(t, true)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("name")
	c.SetParamValues("Migraine")

	if err := h.GetDisease(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetDisease_NotFound(t *testing.T) {
	h, e := newTestHandler(t, true)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("name")
	c.SetParamValues("Nope")

	he, ok := h.GetDisease(c).(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Error("expected 404 for unknown disease")
	}
}

func TestHandler_Health(t *testing.T) {
	h, e := newTestHandler(t, false)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := h.Health(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"degraded"`) {
		t.Errorf("expected degraded status, got %s", rec.Body.String())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler(t, true)
	h.RegisterRoutes(e.Group("/api/v1"), e.Group(""))

	want := map[string]bool{
		"POST /api/v1/symptoms/analyze": false,
		"POST /api/v1/symptoms/predict": false,
		"GET /api/v1/symptoms":          false,
		"GET /api/v1/diseases":          false,
		"GET /api/v1/diseases/:name":    false,
		"GET /health":                   false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
