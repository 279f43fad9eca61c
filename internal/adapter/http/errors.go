package http

import (
	"errors"
	"fmt"
	"net/http"

	"loan-ledger/internal/domain/errs"
	"loan-ledger/internal/infrastructure/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps a domain error onto its HTTP status. Internal failures are
// logged with their cause and answered with an opaque body.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var fe *errs.FieldError
	switch {
	case errors.As(err, &fe):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: fe.Field, Message: fe.Message}},
		})
	case errors.Is(err, errs.ErrInvalidInput):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, errs.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, errs.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	logger.FromContext(c.Request().Context(), log).Error("request failed",
		zap.String("path", c.Path()), zap.Error(errs.Cause(err)))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate reports written=true when it already answered the request.
func bindAndValidate(c echo.Context, req any) (written bool, err error) {
	if err := c.Bind(req); err != nil {
		return true, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return true, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return false, nil
}

// errorHandler renders errors that escape handlers (routing, rate limiting,
// recovered panics) in the same shape as handler errors.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := http.StatusInternalServerError, "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code, msg = he.Code, fmt.Sprint(he.Message)
		} else {
			logger.FromContext(c.Request().Context(), log).Error("unhandled error", zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{Error: msg})
	}
}
