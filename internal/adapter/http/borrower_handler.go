package http

import (
	"net/http"

	"loan-ledger/internal/usecase/registry"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type BorrowerHandler struct {
	uc  *registry.Usecase
	log *zap.Logger
}

func NewBorrowerHandler(uc *registry.Usecase, log *zap.Logger) *BorrowerHandler {
	return &BorrowerHandler{uc: uc, log: log}
}

type registerReq struct {
	FirstName      string  `json:"first_name"      validate:"required,max=100"`
	Surname        string  `json:"surname"         validate:"required,max=100"`
	PhoneNumber    string  `json:"phone_number"    validate:"required,min=7,max=32"`
	WhatsAppNumber *string `json:"whatsapp_number" validate:"omitempty,min=7,max=32"`
}

// Register is open to anonymous callers; the response is the only place the
// session token is ever returned.
func (h *BorrowerHandler) Register(c echo.Context) error {
	var req registerReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	dto, err := h.uc.Register(c.Request().Context(), registry.RegisterInput(req))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *BorrowerHandler) List(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}
