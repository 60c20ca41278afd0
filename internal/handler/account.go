package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/repository"
)

// AccountHandler covers balance operations and the admin management
// surface over accounts.
type AccountHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
}

func NewAccountHandler(cfg config.Config, a *repository.AccountRepo) *AccountHandler {
	return &AccountHandler{Cfg: cfg, Accounts: a}
}

// accountError maps repository sentinels to HTTP responses.
func accountError(c echo.Context, err error) error {
	switch err {
	case repository.ErrAccountNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	case repository.ErrAccountExists:
		return c.JSON(http.StatusConflict, echo.Map{"error": "user id is taken"})
	case repository.ErrLastAdmin:
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot remove the last admin"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "account operation failed"})
}

// targetUser resolves the :id path param.  Clients are pinned to their
// own account no matter what the path says.
func targetUser(c echo.Context) (string, error) {
	userID, err := getUserID(c)
	if err != nil {
		return "", err
	}
	target := c.Param("id")
	if target == "" || getRole(c) == model.RoleClient {
		return userID, nil
	}
	return target, nil
}

type accountView struct {
	UserID   string  `json:"user_id"`
	Role     string  `json:"role"`
	Balance  float64 `json:"balance"`
	IsActive bool    `json:"is_active"`
}

func toView(a model.Account) accountView {
	return accountView{UserID: a.UserID, Role: a.Role, Balance: a.Balance, IsActive: a.IsActive}
}

// ----- balance -----

// GetBalance shows the target account's funds.
func (h *AccountHandler) GetBalance(c echo.Context) error {
	target, err := targetUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	balance, err := h.Accounts.GetBalance(ctx, target)
	if err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": target, "balance": balance})
}

type addFundsReq struct {
	Amount float64 `json:"amount"`
}

// AddFunds credits the target account.  Only positive amounts are
// accepted; debits happen exclusively through bookings.
func (h *AccountHandler) AddFunds(c echo.Context) error {
	target, err := targetUser(c)
	if err != nil {
		return err
	}
	var req addFundsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	balance, err := h.Accounts.AddFunds(ctx, target, req.Amount)
	if err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": target, "balance": balance})
}

// ----- admin management -----

// ListAccounts returns every account.
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		return accountError(c, err)
	}
	out := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toView(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"accounts": out, "count": len(out)})
}

// ListClients returns the client accounts with their balances.
func (h *AccountHandler) ListClients(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	clients, err := h.Accounts.ListClients(ctx)
	if err != nil {
		return accountError(c, err)
	}
	out := make([]accountView, 0, len(clients))
	for _, a := range clients {
		out = append(out, toView(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"clients": out, "count": len(out)})
}

// GetAccount returns one account by id.
func (h *AccountHandler) GetAccount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	a, err := h.Accounts.GetByID(ctx, c.Param("id"))
	if err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, toView(*a))
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// UpdateRole changes an account's role.  The last admin keeps theirs.
func (h *AccountHandler) UpdateRole(c echo.Context) error {
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !validRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Accounts.UpdateRole(ctx, c.Param("id"), role); err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "role": role})
}

type updatePasswordReq struct {
	Password string `json:"password"`
}

// UpdatePassword resets an account's credential.
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Accounts.UpdatePassword(ctx, c.Param("id"), req.Password, h.Cfg.BcryptCost); err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "updated": true})
}

type renameReq struct {
	NewUserID string `json:"new_user_id"`
}

// Rename changes an account's user id.
func (h *AccountHandler) Rename(c echo.Context) error {
	var req renameReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.NewUserID = strings.TrimSpace(req.NewUserID)
	if req.NewUserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_user_id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Accounts.Rename(ctx, c.Param("id"), req.NewUserID); err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": req.NewUserID, "renamed_from": c.Param("id")})
}

type setActiveReq struct {
	Active bool `json:"active"`
}

// SetActive activates or deactivates an account.
func (h *AccountHandler) SetActive(c echo.Context) error {
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Accounts.SetActive(ctx, c.Param("id"), req.Active); err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "is_active": req.Active})
}

// DeleteAccount removes an account entirely.
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Accounts.Delete(ctx, c.Param("id")); err != nil {
		return accountError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Param("id"), "deleted": true})
}
