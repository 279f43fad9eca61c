package http

import (
	"net/http"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RequestHandler struct {
	uc  *workflow.Usecase
	log *zap.Logger
}

func NewRequestHandler(uc *workflow.Usecase, log *zap.Logger) *RequestHandler {
	return &RequestHandler{uc: uc, log: log}
}

type submitReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
}

// decisionReq: the body is optional for approve and decline.
type decisionReq struct {
	Note *string `json:"note" validate:"omitempty,max=500"`
}

func (h *RequestHandler) Submit(c echo.Context) error {
	var req submitReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.Submit(ctx, actor.FromContext(ctx), req.Amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *RequestHandler) Pending(c echo.Context) error {
	out, err := h.uc.PendingRequests(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RequestHandler) Mine(c echo.Context) error {
	ctx := c.Request().Context()
	out, err := h.uc.MyRequests(ctx, actor.FromContext(ctx))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Status reports the calling borrower's derived status.
func (h *RequestHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.uc.StatusForBorrower(ctx, actor.FromContext(ctx).ID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(st)})
}

func (h *RequestHandler) Approve(c echo.Context) error {
	var req decisionReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.Approve(ctx, actor.FromContext(ctx), c.Param("request_id"), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RequestHandler) Decline(c echo.Context) error {
	var req decisionReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.Decline(ctx, actor.FromContext(ctx), c.Param("request_id"), req.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
