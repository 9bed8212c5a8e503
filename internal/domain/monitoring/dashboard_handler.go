package monitoring

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cardiomon/api/internal/platform/auth"
)

type DashboardHandler struct {
	svc    *DashboardService
	logger zerolog.Logger
}

func NewDashboardHandler(svc *DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

func (h *DashboardHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard, auth.RequireRole(auth.RoleAdmin, auth.RolePatient))
}

// GetDashboard answers admins with the cross-patient overview and patients
// with their own record.
func (h *DashboardHandler) GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	access, _ := auth.AccessFromContext(ctx)

	var (
		d   *Dashboard
		err error
	)
	if access.Role == auth.RoleAdmin {
		d, err = h.svc.AdminOverview(ctx)
	} else {
		if !auth.CanAccess(access, access.PatientID) {
			return auth.ErrForbidden
		}
		d, err = h.svc.PatientOverview(ctx, access.PatientID)
	}

	switch {
	case err == nil:
		return c.JSON(http.StatusOK, d)
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	default:
		h.logger.Error().Err(err).
			Str("role", string(access.Role)).
			Int64("patient_id", access.PatientID).
			Msg("dashboard request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
