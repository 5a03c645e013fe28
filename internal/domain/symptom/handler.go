package symptom

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careassist/careassist/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the symptom endpoints on api and the health check
// on root, which sits outside authentication.
func (h *Handler) RegisterRoutes(api *echo.Group, root *echo.Group) {
	api.POST("/symptoms/analyze", h.Analyze)
	api.POST("/symptoms/predict", h.Predict)
	api.GET("/symptoms", h.ListSymptoms)
	api.GET("/diseases", h.ListDiseases)
	api.GET("/diseases/:name", h.GetDisease)

	if root != nil {
		root.GET("/health", h.Health)
	}
}

// Analyze answers 200 even for unusable input; the body then carries an
// error and an example.
func (h *Handler) Analyze(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.svc.Analyze(c.Request().Context(), req))
}

type predictRequest struct {
	Symptoms []string `json:"symptoms"`
}

func (h *Handler) Predict(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "symptoms must be a non-empty list")
	}
	out, err := h.svc.Predict(c.Request().Context(), req.Symptoms)
	if err != nil {
		if errors.Is(err, ErrClassifierUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "classifier not available")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ListSymptoms(c echo.Context) error {
	items := h.svc.ListVocabulary()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"symptoms": items,
		"total":    len(items),
	})
}

func (h *Handler) ListDiseases(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total := h.svc.ListDiseases(pg.Limit, pg.Offset)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDisease(c echo.Context) error {
	d, err := h.svc.GetDisease(c.Param("name"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "disease not found")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Health())
}
