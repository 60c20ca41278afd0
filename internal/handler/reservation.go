package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/queue"
	queue_publisher "github.com/iliyamo/facility-reservation/internal/service"
)

// ReservationHandler exposes booking, hold and cancellation endpoints
// on top of the engine.
type ReservationHandler struct {
	Cfg    config.Config
	Engine *engine.Engine
}

func NewReservationHandler(cfg config.Config, eng *engine.Engine) *ReservationHandler {
	return &ReservationHandler{Cfg: cfg, Engine: eng}
}

type bookReq struct {
	Item      string  `json:"item"`
	ClientID  string  `json:"client_id"`
	Date      string  `json:"date"` // YYYY-MM-DD
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

type bookResp struct {
	ReservationID int64   `json:"reservation_id"`
	Facility      string  `json:"facility"`
	Item          string  `json:"item"`
	ClientID      string  `json:"client_id"`
	Date          string  `json:"date"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount,omitempty"`
}

// resolveClient decides who the reservation belongs to.  Clients always
// book for themselves regardless of the client_id in the body; staff
// roles must name the client.
func resolveClient(c echo.Context, bodyClient string) (string, error) {
	userID, err := getUserID(c)
	if err != nil {
		return "", err
	}
	if getRole(c) == model.RoleClient {
		return userID, nil
	}
	if bodyClient == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "client_id required")
	}
	return bodyClient, nil
}

// CreateReservation books a paid reservation.  The facility comes from
// server configuration, not the request.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	clientID, err := resolveClient(c, req.ClientID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Book(ctx, engine.BookRequest{
		Facility:  h.Cfg.Facility,
		Item:      req.Item,
		ClientID:  clientID,
		Date:      req.Date,
		StartTime: req.StartTime,
		Duration:  req.Duration,
	})
	if err != nil {
		return engineError(c, err)
	}

	// Best effort: the booking already committed, a lost event only
	// costs an audit-log line.
	_ = queue_publisher.Publish(c.Request().Context(), "reservation.booked", queue.ReservationBookedEvent{
		ReservationID: res.ReservationID,
		Facility:      h.Cfg.Facility,
		Item:          req.Item,
		ClientID:      clientID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       res.EndTime,
		Status:        model.StatusActive,
		Amount:        res.Amount,
		BookedAt:      time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, bookResp{
		ReservationID: res.ReservationID,
		Facility:      h.Cfg.Facility,
		Item:          req.Item,
		ClientID:      clientID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       res.EndTime,
		Status:        model.StatusActive,
		Amount:        res.Amount,
	})
}

// CreateHold places an unpaid hold for a remote party.  Holds skip the
// account and balance checks entirely.
func (h *ReservationHandler) CreateHold(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	clientID, err := resolveClient(c, req.ClientID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Engine.Hold(ctx, engine.BookRequest{
		Facility:  h.Cfg.Facility,
		Item:      req.Item,
		ClientID:  clientID,
		Date:      req.Date,
		StartTime: req.StartTime,
		Duration:  req.Duration,
	})
	if err != nil {
		return engineError(c, err)
	}

	_ = queue_publisher.Publish(c.Request().Context(), "reservation.booked", queue.ReservationBookedEvent{
		ReservationID: res.ReservationID,
		Facility:      h.Cfg.Facility,
		Item:          req.Item,
		ClientID:      clientID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       res.EndTime,
		Status:        model.StatusHeld,
		BookedAt:      time.Now().UTC(),
	})

	return c.JSON(http.StatusCreated, bookResp{
		ReservationID: res.ReservationID,
		Facility:      h.Cfg.Facility,
		Item:          req.Item,
		ClientID:      clientID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       res.EndTime,
		Status:        model.StatusHeld,
	})
}

type cancelResp struct {
	ReservationID int64   `json:"reservation_id"`
	Status        string  `json:"status"`
	Refund        float64 `json:"refund"`
}

// reservationID parses the :id path parameter.
func reservationID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}
	return id, nil
}

// CancelReservation cancels an active reservation (or a hold, when the
// caller reaches it through this route) and reports the refund.
// Clients may only cancel their own reservations.
func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	return h.cancel(c, false)
}

// CancelHold cancels a held reservation.  The route exists so remote
// callers with only hold capabilities can release what they placed; it
// rejects reservations that are not holds.
func (h *ReservationHandler) CancelHold(c echo.Context) error {
	return h.cancel(c, true)
}

func (h *ReservationHandler) cancel(c echo.Context, holdOnly bool) error {
	id, err := reservationID(c)
	if err != nil {
		return err
	}
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	r, err := h.Engine.GetReservation(ctx, id)
	if err != nil {
		return engineError(c, err)
	}
	if !ownReservation(getRole(c), userID, r) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
	}
	if holdOnly && r.Status != model.StatusHeld {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "reservation is not a hold"})
	}

	res, err := h.Engine.Cancel(ctx, id)
	if err != nil {
		return engineError(c, err)
	}

	_ = queue_publisher.Publish(c.Request().Context(), "reservation.cancelled", queue.ReservationCancelledEvent{
		ReservationID: id,
		ClientID:      res.Reservation.ClientID,
		Refund:        res.Refund,
		WasHeld:       res.WasHeld,
		CancelledAt:   time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, cancelResp{
		ReservationID: id,
		Status:        model.StatusCancelled,
		Refund:        res.Refund,
	})
}

// Availability answers whether a window still has capacity for an item
// kind.  Query params: date, start, end, item.
func (h *ReservationHandler) Availability(c echo.Context) error {
	date := c.QueryParam("date")
	item := c.QueryParam("item")
	start, err1 := strconv.ParseFloat(c.QueryParam("start"), 64)
	end, err2 := strconv.ParseFloat(c.QueryParam("end"), 64)
	if date == "" || item == "" || err1 != nil || err2 != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date, item, start and end are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	free, err := h.Engine.IsAvailable(ctx, date, start, end, item)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date": date, "item": item, "start": start, "end": end,
		"available": free,
	})
}
