package monitoring

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cardiomon/api/internal/domain/nutrition"
	"github.com/cardiomon/api/internal/platform/auth"
	"github.com/cardiomon/api/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the monitoring endpoints. submit wraps only the POST
// routes, e.g. with a submission rate limit.
func (h *Handler) RegisterRoutes(api *echo.Group, submit ...echo.MiddlewareFunc) {
	patients := api.Group("/patients/:id", auth.RequirePatientAccess("id"))
	patients.POST("/monitoring", h.CreateEntry, submit...)
	patients.GET("/monitoring", h.ListEntries)

	me := api.Group("/me", auth.RequireRole(auth.RolePatient))
	me.POST("/monitoring", h.CreateOwnEntry, submit...)
	me.GET("/monitoring", h.ListOwnEntries)
}

func (h *Handler) CreateEntry(c echo.Context) error {
	id, err := auth.PatientIDParam(c, "id")
	if err != nil {
		return err
	}
	return h.ingest(c, id)
}

func (h *Handler) CreateOwnEntry(c echo.Context) error {
	access, _ := auth.AccessFromContext(c.Request().Context())
	return h.ingest(c, access.PatientID)
}

func (h *Handler) ListEntries(c echo.Context) error {
	id, err := auth.PatientIDParam(c, "id")
	if err != nil {
		return err
	}
	return h.list(c, id)
}

func (h *Handler) ListOwnEntries(c echo.Context) error {
	access, _ := auth.AccessFromContext(c.Request().Context())
	return h.list(c, access.PatientID)
}

func (h *Handler) ingest(c echo.Context, patientID int64) error {
	var sub Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.svc.Ingest(c.Request().Context(), patientID, sub)
	if err != nil {
		return h.errorResponse(c, patientID, err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) list(c echo.Context, patientID int64) error {
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return h.errorResponse(c, patientID, err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

// errorResponse maps service errors to HTTP. Storage and upstream causes
// stay in the log.
func (h *Handler) errorResponse(c echo.Context, patientID int64, err error) error {
	var (
		verr *ValidationError
		nerr *nutrition.Error
	)
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.As(err, &nerr):
		status := http.StatusBadGateway
		if nerr.Kind == nutrition.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		return echo.NewHTTPError(status, nerr.UserMessage())
	default:
		h.logger.Error().Err(err).
			Int64("patient_id", patientID).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("monitoring request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
