package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// ReportHandler serves the read-only reporting endpoints: reservation
// listings, hold listings and ledger extracts.  All of them accept an
// optional format=csv query parameter for spreadsheet export.
type ReportHandler struct {
	Cfg    config.Config
	Engine *engine.Engine
}

func NewReportHandler(cfg config.Config, eng *engine.Engine) *ReportHandler {
	return &ReportHandler{Cfg: cfg, Engine: eng}
}

// dateRange reads the start_date/end_date query params.  Both are
// optional; when present they must be ISO dates.
func dateRange(c echo.Context) (string, string, error) {
	from := c.QueryParam("start_date")
	to := c.QueryParam("end_date")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(engine.DateLayout, d); err != nil {
			return "", "", echo.NewHTTPError(http.StatusBadRequest, "dates must be YYYY-MM-DD")
		}
	}
	return from, to, nil
}

// ListReservations returns active reservations in the date range.
// Clients are pinned to their own reservations; staff may filter by
// the client query param or see everything.
func (h *ReportHandler) ListReservations(c echo.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	clientFilter := c.QueryParam("client")
	if getRole(c) == model.RoleClient {
		clientFilter = userID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Engine.ListReservations(ctx, from, to, h.Cfg.Facility, clientFilter)
	if err != nil {
		return engineError(c, err)
	}
	if wantsCSV(c) {
		return writeReservationCSV(c, rows)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": rows, "count": len(rows)})
}

// ListHolds returns held reservations in the date range.
func (h *ReportHandler) ListHolds(c echo.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Engine.ListHolds(ctx, from, to)
	if err != nil {
		return engineError(c, err)
	}
	if wantsCSV(c) {
		return writeReservationCSV(c, rows)
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": rows, "count": len(rows)})
}

// ListTransactions returns ledger entries in the date range.  Clients
// see their own entries only; staff may filter with the account query
// param.
func (h *ReportHandler) ListTransactions(c echo.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	userID, err := getUserID(c)
	if err != nil {
		return err
	}
	accountFilter := c.QueryParam("account")
	if getRole(c) == model.RoleClient {
		accountFilter = userID
	}

	var fromT, toT time.Time
	if from != "" {
		fromT, _ = time.Parse(engine.DateLayout, from)
	}
	if to != "" {
		// end_date is inclusive, so the bound is the next midnight.
		d, _ := time.Parse(engine.DateLayout, to)
		toT = d.AddDate(0, 0, 1)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := h.Engine.ListTransactions(ctx, fromT, toT, accountFilter)
	if err != nil {
		return engineError(c, err)
	}
	if wantsCSV(c) {
		return writeTransactionCSV(c, rows)
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": rows, "count": len(rows)})
}

func wantsCSV(c echo.Context) bool {
	return c.QueryParam("format") == "csv"
}

func writeReservationCSV(c echo.Context, rows []model.Reservation) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="reservations.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"reservation_id", "facility", "date", "item", "client_id", "start_time", "end_time", "status"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			r.Facility,
			r.Date,
			r.Item,
			r.ClientID,
			fmt.Sprintf("%g", r.StartTime),
			fmt.Sprintf("%g", r.EndTime),
			r.Status,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeTransactionCSV(c echo.Context, rows []model.Transaction) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"transaction_id", "type", "amount", "timestamp", "account_id", "reservation_id"}); err != nil {
		return err
	}
	for _, t := range rows {
		rec := []string{
			t.ID,
			t.Type,
			fmt.Sprintf("%g", t.Amount),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.AccountID,
			strconv.FormatInt(t.ReservationID, 10),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
