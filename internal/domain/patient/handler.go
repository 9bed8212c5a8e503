package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cardiomon/api/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id", h.GetPatient, auth.RequirePatientAccess("id"))
	api.GET("/me/patient", h.GetOwnPatient, auth.RequireRole(auth.RolePatient))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := auth.PatientIDParam(c, "id")
	if err != nil {
		return err
	}
	return h.respond(c, id)
}

func (h *Handler) GetOwnPatient(c echo.Context) error {
	access, _ := auth.AccessFromContext(c.Request().Context())
	return h.respond(c, access.PatientID)
}

func (h *Handler) respond(c echo.Context, id int64) error {
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("patient_id", id).Msg("patient lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, NewProfile(p, time.Now()))
}
