package aiaudit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scrubnote/scrubnote/internal/platform/auth"
	"github.com/scrubnote/scrubnote/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	review := api.Group("", auth.RequireRole("admin", "compliance"))
	review.GET("/ai-audit", h.SearchRecords)
	review.GET("/ai-audit/:id", h.GetRecord)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "audit record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) SearchRecords(c echo.Context) error {
	p := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"actor", "action", "outcome", "patient", "model"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	items, total, err := h.svc.SearchRecords(c.Request().Context(), params, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit search failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
