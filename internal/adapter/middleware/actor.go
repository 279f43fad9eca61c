package middleware

import (
	"context"
	"net/http"
	"strings"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/usecase/authz"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey       = "X-Api-Key"
	HeaderBorrowerID   = "X-Borrower-Id"
	HeaderSessionToken = "X-Session-Token"
)

type Classifier interface {
	Classify(ctx context.Context, c authz.Credentials) (actor.Actor, error)
}

type Authorizer interface {
	Authorize(a actor.Actor, op authz.Operation) error
}

func credentials(r *http.Request) authz.Credentials {
	return authz.Credentials{
		APIKey:       strings.TrimSpace(r.Header.Get(HeaderAPIKey)),
		BorrowerID:   strings.TrimSpace(r.Header.Get(HeaderBorrowerID)),
		SessionToken: strings.TrimSpace(r.Header.Get(HeaderSessionToken)),
	}
}

// classifyFailedKey marks a request whose caller could not be classified.
const classifyFailedKey = "actor.classify_failed"

// Actor classifies the caller once per request and stores the result on the
// request context. When classification fails the caller continues as
// anonymous; Require turns that into a 500 on routes anonymous may not use.
func Actor(gate Classifier, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			a, err := gate.Classify(req.Context(), credentials(req))
			if err != nil {
				log.Error("classify caller", zap.Error(err), zap.String("path", req.URL.Path))
				a = actor.Anon()
				c.Set(classifyFailedKey, true)
			}
			c.SetRequest(req.WithContext(actor.WithActor(req.Context(), a)))
			return next(c)
		}
	}
}

// Require rejects the request with 401 unless the classified actor may run op.
// It runs before any body binding.
func Require(gate Authorizer, op authz.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := gate.Authorize(actor.FromContext(c.Request().Context()), op); err != nil {
				if failed, _ := c.Get(classifyFailedKey).(bool); failed {
					return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
