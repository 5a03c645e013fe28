package pharmacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careassist/careassist/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := NewService(NewPrescriptionStoreMemory(), NewOrderStoreMemory(), DefaultCatalog(), nil, zerolog.Nop())
	return NewHandler(svc), echo.New()
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func analyzeSample(t *testing.T, h *Handler, e *echo.Echo) *Prescription {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": samplePrescription})
	rec := httptest.NewRecorder()
	c := e.NewContext(newJSONRequest(http.MethodPost, "/", string(body)), rec)
	if err := h.AnalyzePrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var p Prescription
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &p
}

func TestHandler_AnalyzePrescription(t *testing.T) {
	h, e := newTestHandler()
	p := analyzeSample(t, h, e)
	if !strings.HasPrefix(p.ID, "RX") {
		t.Errorf("expected RX id, got %q", p.ID)
	}
	if len(p.Medicines) != 3 {
		t.Errorf("expected 3 medicines, got %d", len(p.Medicines))
	}
}

func TestHandler_AnalyzePrescription_Empty(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(newJSONRequest(http.MethodPost, "/", `{"text":"   "}`), rec)
	err := h.AnalyzePrescription(c)
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetPrescription(t *testing.T) {
	h, e := newTestHandler()
	p := analyzeSample(t, h, e)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID)
	if err := h.GetPrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetPrescription_NotFound(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("RX-none")
	err := h.GetPrescription(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_DeletePrescription(t *testing.T) {
	h, e := newTestHandler()
	p := analyzeSample(t, h, e)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID)
	if err := h.DeletePrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(p.ID)
	if httpErr, ok := h.DeletePrescription(c).(*echo.HTTPError); !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete")
	}
}

func TestHandler_CreateOrder(t *testing.T) {
	h, e := newTestHandler()
	p := analyzeSample(t, h, e)

	body := `{"prescription_id":"` + p.ID + `","medicines":[{"name":"Crocin","quantity":2}],` +
		`"delivery_address":"12 MG Road","contact_number":"9876543210"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(newJSONRequest(http.MethodPost, "/", body), rec)
	if err := h.CreateOrder(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var o Order
	if err := json.Unmarshal(rec.Body.Bytes(), &o); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if o.TotalAmount != 200 {
		t.Errorf("expected total 200, got %v", o.TotalAmount)
	}
}

func TestHandler_CreateOrder_Errors(t *testing.T) {
	h, e := newTestHandler()
	p := analyzeSample(t, h, e)

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"unknown prescription", `{"prescription_id":"RX0","medicines":[{"name":"a"}],"delivery_address":"x","contact_number":"1"}`,
			http.StatusNotFound, "prescription not found"},
		{"missing address", `{"prescription_id":"` + p.ID + `","medicines":[{"name":"a"}],"contact_number":"1"}`,
			http.StatusBadRequest, "Delivery address is required"},
		{"bad quantity", `{"prescription_id":"` + p.ID + `","medicines":[{"name":"a","quantity":0}],"delivery_address":"x","contact_number":"1"}`,
			http.StatusBadRequest, "All medicines must have valid quantities"},
		{"malformed", `{"medicines":`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(newJSONRequest(http.MethodPost, "/", tt.body), httptest.NewRecorder())
			err := h.CreateOrder(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTPError, got %v", err)
			}
			if httpErr.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, httpErr.Code)
			}
			if httpErr.Message != tt.msg {
				t.Errorf("expected %q, got %v", tt.msg, httpErr.Message)
			}
		})
	}
}

func TestHandler_SearchMedicines(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?query=paracetamol&limit=2", nil), rec)
	if err := h.SearchMedicines(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		Medicines []CatalogEntry `json:"medicines"`
		Total     int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Medicines) != 2 || out.Total != 5 {
		t.Errorf("expected 2 of 5 medicines, got %d of %d", len(out.Medicines), out.Total)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), httptest.NewRecorder())
	if httpErr, ok := h.SearchMedicines(c).(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit")
	}
}

func TestHandler_GetMedicine(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("name")
	c.SetParamValues("augmentn")
	if err := h.GetMedicine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"Augmentin"`) {
		t.Errorf("expected Augmentin, got %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("name")
	c.SetParamValues("qqqqqq")
	if httpErr, ok := h.GetMedicine(c).(*echo.HTTPError); !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown medicine")
	}
}

func withRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func TestHandler_ListOrdersRequiresPharmacist(t *testing.T) {
	tests := []struct {
		roles []string
		code  int
	}{
		{[]string{"patient"}, http.StatusForbidden},
		{[]string{"pharmacist"}, http.StatusOK},
		{[]string{"admin"}, http.StatusOK},
	}
	for _, tt := range tests {
		h, e := newTestHandler()
		e.Pre(withRoles(tt.roles...))
		h.RegisterRoutes(e.Group("/api/v1"), nil)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
		if rec.Code != tt.code {
			t.Errorf("roles %v: expected %d, got %d", tt.roles, tt.code, rec.Code)
		}
	}
}

func TestHandler_ListPrescriptions(t *testing.T) {
	h, e := newTestHandler()
	first := analyzeSample(t, h, e)
	analyzeSample(t, h, e)

	e.Pre(withRoles("pharmacist"))
	h.RegisterRoutes(e.Group("/api/v1"), nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Data    []Prescription `json:"data"`
		Total   int            `json:"total"`
		Limit   int            `json:"limit"`
		HasMore bool           `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 || page.Limit != 1 || len(page.Data) != 1 || !page.HasMore {
		t.Errorf("unexpected page: total=%d limit=%d items=%d has_more=%v", page.Total, page.Limit, len(page.Data), page.HasMore)
	}

	// the listing route must not shadow lookups by id
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/"+first.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for lookup by id, got %d", rec.Code)
	}
}

func TestHandler_ListPrescriptionsRequiresPharmacist(t *testing.T) {
	h, e := newTestHandler()
	e.Pre(withRoles("patient"))
	h.RegisterRoutes(e.Group("/api/v1"), nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_Stats(t *testing.T) {
	h, e := newTestHandler()
	analyzeSample(t, h, e)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.TotalPrescriptionsAnalyzed != 1 {
		t.Errorf("expected 1 prescription, got %d", s.TotalPrescriptionsAnalyzed)
	}
}
