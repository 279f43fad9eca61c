package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminAuthenticator interface {
	AdminLogin(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	gate AdminAuthenticator
	log  *zap.Logger
}

func NewAuthHandler(gate AdminAuthenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, log: log}
}

type loginReq struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResp struct {
	APIKey string `json:"api_key"`
}

func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	key, err := h.gate.AdminLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, loginResp{APIKey: key})
}
