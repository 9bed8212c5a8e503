package auth

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// AccessContext identifies the authenticated caller. PatientID is meaningful
// only for RolePatient.
type AccessContext struct {
	Role      Role
	PatientID int64
	UserID    string
}

// CanAccess reports whether access may read or write data of targetPatientID.
// Admins reach every patient; a patient reaches only the id bound in its
// token; anything else is denied.
func CanAccess(access AccessContext, targetPatientID int64) bool {
	switch access.Role {
	case RoleAdmin:
		return true
	case RolePatient:
		return access.PatientID > 0 && access.PatientID == targetPatientID
	default:
		return false
	}
}

// ErrForbidden is returned for every authorization denial.
var ErrForbidden = echo.NewHTTPError(http.StatusForbidden, "forbidden")

// PatientIDParam parses the named path parameter as a positive patient id.
func PatientIDParam(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

// RequirePatientAccess applies CanAccess to the patient id in path parameter
// param.
func RequirePatientAccess(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			access, ok := AccessFromContext(c.Request().Context())
			if !ok {
				return ErrForbidden
			}
			id, err := PatientIDParam(c, param)
			if err != nil {
				return err
			}
			if !CanAccess(access, id) {
				return ErrForbidden
			}
			return next(c)
		}
	}
}
