package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// getUserID extracts the authenticated account id stored by the JWT
// middleware.  Methods return 401 when it is missing, which means the
// route was registered without JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v, nil
	}
	return "", echo.ErrUnauthorized
}

// getRole extracts the authenticated role, empty when absent.
func getRole(c echo.Context) string {
	if v, ok := c.Get("role").(string); ok {
		return v
	}
	return ""
}

// engineError translates engine sentinels into JSON error responses.
// Business rejections are client errors; ErrUnavailable means the
// storage layer failed with no partial commit and maps to 503.
func engineError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, engine.ErrAccountInactive),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrCapacityExceeded):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyCancelled):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// ownReservation reports whether the caller may act on the
// reservation: clients only on their own, every other role on any.
func ownReservation(role, userID string, r *model.Reservation) bool {
	return role != model.RoleClient || r.ClientID == userID
}
