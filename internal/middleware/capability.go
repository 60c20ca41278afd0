package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// Operations a route can require.  Roles map to a set of these in the
// capability table below; routing consults the table instead of
// branching on role names, so adding a role or an operation is a data
// change, not new conditionals.
const (
	CapReservationCreate = "reservation:create"
	CapReservationCancel = "reservation:cancel"
	CapHoldCreate        = "hold:create"
	CapHoldCancel        = "hold:cancel"
	CapReportView        = "report:view"
	CapBalanceView       = "balance:view"
	CapBalanceAdd        = "balance:add"
	CapUserManage        = "user:manage"
)

// capabilities is the role → permitted-operation table.  Schedulers run
// the front desk: bookings, cancellations and reports.  Clients can do
// the same for themselves plus fund their balance.  Remote parties
// only place and release holds.  Admins additionally manage accounts.
var capabilities = map[string]map[string]bool{
	model.RoleAdmin: {
		CapReservationCreate: true,
		CapReservationCancel: true,
		CapHoldCreate:        true,
		CapHoldCancel:        true,
		CapReportView:        true,
		CapBalanceView:       true,
		CapBalanceAdd:        true,
		CapUserManage:        true,
	},
	model.RoleScheduler: {
		CapReservationCreate: true,
		CapReservationCancel: true,
		CapReportView:        true,
		CapBalanceView:       true,
		CapBalanceAdd:        true,
	},
	model.RoleClient: {
		CapReservationCreate: true,
		CapReservationCancel: true,
		CapReportView:        true,
		CapBalanceView:       true,
		CapBalanceAdd:        true,
	},
	model.RoleRemote: {
		CapHoldCreate: true,
		CapHoldCancel: true,
		CapReportView: true,
	},
}

// Allowed reports whether the given role may perform the operation.
func Allowed(role, operation string) bool {
	return capabilities[role][operation]
}

// RequireCapability returns a middleware that rejects requests whose
// authenticated role does not carry the operation.  It assumes JWTAuth
// has stored the role in the context.
func RequireCapability(operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !Allowed(role, operation) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
