// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/handler"
	"github.com/iliyamo/facility-reservation/internal/middleware"
)

// Handlers groups every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Reservation *handler.ReservationHandler
	Report      *handler.ReportHandler
	Account     *handler.AccountHandler
}

// RegisterRoutes mounts the public and protected route groups.  The
// Redis client may be nil, in which case caching and rate limiting
// silently disable themselves.
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	e.GET("/healthz", handler.Health)

	// Public auth endpoints.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Everything else requires a valid access token.
	api := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	api.GET("/auth/me", h.Auth.Me)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	reportCache := middleware.NewReportCache(config.LoadCacheConfig(), rdb)

	// Reservations and holds.  Write routes go through the rate
	// limiter so a runaway caller cannot hammer the booking path.
	api.POST("/reservations", h.Reservation.CreateReservation,
		middleware.RequireCapability(middleware.CapReservationCreate), limiter)
	api.DELETE("/reservations/:id", h.Reservation.CancelReservation,
		middleware.RequireCapability(middleware.CapReservationCancel), limiter)
	api.POST("/holds", h.Reservation.CreateHold,
		middleware.RequireCapability(middleware.CapHoldCreate), limiter)
	api.DELETE("/holds/:id", h.Reservation.CancelHold,
		middleware.RequireCapability(middleware.CapHoldCancel), limiter)
	api.GET("/availability", h.Reservation.Availability,
		middleware.RequireCapability(middleware.CapReportView))

	// Reports.  Read-only and cacheable.
	api.GET("/reports/reservations", h.Report.ListReservations,
		middleware.RequireCapability(middleware.CapReportView), reportCache)
	api.GET("/reports/holds", h.Report.ListHolds,
		middleware.RequireCapability(middleware.CapReportView), reportCache)
	api.GET("/reports/transactions", h.Report.ListTransactions,
		middleware.RequireCapability(middleware.CapReportView), reportCache)

	// Balance.
	api.GET("/balance", h.Account.GetBalance,
		middleware.RequireCapability(middleware.CapBalanceView))
	api.GET("/balance/:id", h.Account.GetBalance,
		middleware.RequireCapability(middleware.CapBalanceView))
	api.POST("/balance/add", h.Account.AddFunds,
		middleware.RequireCapability(middleware.CapBalanceAdd), limiter)
	api.POST("/balance/:id/add", h.Account.AddFunds,
		middleware.RequireCapability(middleware.CapBalanceAdd), limiter)

	// Account management, admin only through the capability table.
	admin := api.Group("/accounts", middleware.RequireCapability(middleware.CapUserManage))
	admin.GET("", h.Account.ListAccounts)
	admin.GET("/clients", h.Account.ListClients)
	admin.GET("/:id", h.Account.GetAccount)
	admin.PUT("/:id/role", h.Account.UpdateRole)
	admin.PUT("/:id/password", h.Account.UpdatePassword)
	admin.PUT("/:id/rename", h.Account.Rename)
	admin.PUT("/:id/active", h.Account.SetActive)
	admin.DELETE("/:id", h.Account.DeleteAccount)
}
