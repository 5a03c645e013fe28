package pharmacy

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/careassist/careassist/internal/platform/auth"
	"github.com/careassist/careassist/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	api.POST("/prescriptions/analyze", h.AnalyzePrescription)
	api.GET("/prescriptions/:id", h.GetPrescription)
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.GET("/medicines/search", h.SearchMedicines)
	api.GET("/medicines/:name", h.GetMedicine)
	api.GET("/pharmacy/stats", h.Stats)

	// Pharmacist endpoints
	staff := api.Group("", auth.RequireRole("pharmacist"))
	staff.GET("/prescriptions", h.ListPrescriptions)
	staff.DELETE("/prescriptions/:id", h.DeletePrescription)
	staff.GET("/orders", h.ListOrders)
}

// -- Prescription Handlers --

type analyzeRequest struct {
	Text string `json:"text"`
}

func (h *Handler) AnalyzePrescription(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.AnalyzePrescription(c.Request().Context(), req.Text)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.svc.GetPrescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromContextWithDefault(c, ordersPageSize)
	items, total, err := h.svc.ListPrescriptions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	if err := h.svc.DeletePrescription(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Order Handlers --

func (h *Handler) CreateOrder(c echo.Context) error {
	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), req)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	o, err := h.svc.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

// ordersPageSize is the page size for order and prescription listings when
// the caller sends no limit.
const ordersPageSize = 50

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContextWithDefault(c, ordersPageSize)
	items, total, err := h.svc.ListOrders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Catalog Handlers --

func (h *Handler) SearchMedicines(c echo.Context) error {
	limit := DefaultSearchLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	query := c.QueryParam("query")
	items, total := h.svc.SearchMedicines(query, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query":     query,
		"medicines": items,
		"total":     total,
	})
}

func (h *Handler) GetMedicine(c echo.Context) error {
	entry, score, err := h.svc.LookupMedicine(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"medicine":    entry,
		"match_score": score,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func errorResponse(err error) error {
	var ve ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrPrescriptionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
