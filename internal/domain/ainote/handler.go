package ainote

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/scrubnote/scrubnote/internal/domain/identity"
	"github.com/scrubnote/scrubnote/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	patients *identity.Service
}

func NewHandler(svc *Service, patients *identity.Service) *Handler {
	return &Handler{svc: svc, patients: patients}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "physician", "nurse")
	api.POST("/patients/:id/ai-summary", h.Summarize, role)
}

type summaryRequest struct {
	Text string `json:"text"`
}

type summaryResponse struct {
	Summary           string `json:"summary"`
	ElementsProtected int    `json:"elements_protected"`
	DurationMs        int64  `json:"duration_ms"`
}

func (h *Handler) Summarize(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req summaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	ids, err := h.patients.ResolveIdentifiers(ctx, patientID)
	if err != nil {
		if errors.Is(err, identity.ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve patient")
	}

	result, err := h.svc.Summarize(ctx, SummaryRequest{
		SourceText:  req.Text,
		Identifiers: ids,
		PatientID:   &patientID,
		Actor:       auth.UserIDFromContext(ctx),
		ActorRole:   auth.PrimaryRole(ctx),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotAuthorized):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrEmptySource):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			return echo.NewHTTPError(http.StatusGatewayTimeout, "model did not respond in time")
		case errors.Is(err, ErrGeneration):
			return echo.NewHTTPError(http.StatusBadGateway, "summarization backend unavailable")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "summarization failed")
		}
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Summary:           result.Summary,
		ElementsProtected: result.ElementsProtected,
		DurationMs:        result.Duration.Milliseconds(),
	})
}
