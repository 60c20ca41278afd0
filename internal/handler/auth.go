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
	"github.com/iliyamo/facility-reservation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
}

func NewAuthHandler(cfg config.Config, a *repository.AccountRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a}
}

// ----- DTOs -----

type registerReq struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
	Role     string `json:"role"` // scheduler | admin | client | remote
}
type loginReq struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type accountPart struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
type authResp struct {
	Account accountPart `json:"account"`
	Access  tokenPart   `json:"access"`
}

func validRole(role string) bool {
	switch role {
	case model.RoleScheduler, model.RoleAdmin, model.RoleClient, model.RoleRemote:
		return true
	}
	return false
}

// Register creates an account and returns an access token immediately.
// Unknown roles default to client.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/password required"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !validRole(role) {
		role = model.RoleClient
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.Create(ctx, req.UserID, req.Password, role, h.Cfg.BcryptCost); err != nil {
		if err == repository.ErrAccountExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": req.UserID + " is already a user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.UserID, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusCreated, authResp{
		Account: accountPart{UserID: req.UserID, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login verifies credentials and returns a fresh access token.  When
// client sign-in is disabled by configuration, client-role accounts
// are turned away here; the facility staff still books on their
// behalf.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	a, err := h.Accounts.GetByID(ctx, req.UserID)
	if err != nil {
		if err == repository.ErrAccountNotFound {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "that user ID does not exist in our system"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect credentials"})
	}
	if a.Role == model.RoleClient && !h.Cfg.ClientSignin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client sign-in disabled"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.UserID, a.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		Account: accountPart{UserID: a.UserID, Role: a.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the authenticated account's id, role and balance.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	a, err := h.Accounts.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":   a.UserID,
		"role":      a.Role,
		"balance":   a.Balance,
		"is_active": a.IsActive,
	})
}
