package http

import (
	"time"

	"loan-ledger/internal/adapter/dataloader"
	mw "loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/config"
	"loan-ledger/internal/usecase/authz"
	"loan-ledger/internal/usecase/ledger"
	"loan-ledger/internal/usecase/registry"
	"loan-ledger/internal/usecase/workflow"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Gate     *authz.Gateway
	Ledger   *ledger.Usecase
	Registry *registry.Usecase
	Workflow *workflow.Usecase
	// Redis may be nil; idempotency and the query cache are then disabled.
	Redis *redis.Client
}

// NewServer builds the echo instance with the middleware chain and every route.
// Each route checks authorization before idempotency and before its handler
// binds any input.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(d.Log)

	perMinute := d.Config.App.RateLimitPerMinute
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		mw.RequestLogger(d.Log),
		mw.ContextLogger(d.Log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: d.Config.App.CORSOrigins,
			AllowHeaders: []string{
				echo.HeaderContentType,
				mw.HeaderAPIKey, mw.HeaderBorrowerID, mw.HeaderSessionToken,
				mw.HeaderRequestID, mw.HeaderRequestAt,
			},
		}),
		middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(perMinute) / 60),
				Burst:     perMinute,
				ExpiresIn: 3 * time.Minute,
			}),
		}),
		mw.Actor(d.Gate, d.Log),
		dataloader.Middleware(d.Ledger),
	)

	qc := mw.NewQueryCache(d.Redis, d.Config.Cache.LoansTTL, d.Log)
	need := func(op authz.Operation) echo.MiddlewareFunc { return mw.Require(d.Gate, op) }
	idem := mw.Idempotency(d.Redis, d.Config.Idempotency.TTL, d.Log)

	h := NewHandler()
	auth := NewAuthHandler(d.Gate, d.Log)
	loans := NewLoanHandler(d.Ledger, d.Log)
	borrowers := NewBorrowerHandler(d.Registry, d.Log)
	requests := NewRequestHandler(d.Workflow, d.Log)

	e.GET("/health", h.Health, need(authz.OpHealth))

	api := e.Group("/api")
	api.POST("/admin/login", auth.AdminLogin, need(authz.OpAdminLogin))

	api.GET("/loans", loans.ListActiveLoans, need(authz.OpListActiveLoans), qc.Cache())
	api.POST("/loans", loans.CreateLoan, need(authz.OpCreateLoan), idem, qc.Invalidate())
	api.GET("/loans/:loan_id", loans.GetLoan, need(authz.OpGetLoan))
	api.PATCH("/loans/:loan_id", loans.UpdateLoan, need(authz.OpUpdateLoan), idem, qc.Invalidate())
	api.DELETE("/loans/:loan_id", loans.DeleteLoan, need(authz.OpDeleteLoan), idem, qc.Invalidate())
	api.POST("/loans/:loan_id/repayments", loans.AddRepayment, need(authz.OpAddRepayment), idem, qc.Invalidate())
	api.GET("/repayments", loans.ListRepayments, need(authz.OpListRepayments))

	api.POST("/borrowers", borrowers.Register, need(authz.OpRegisterBorrower), idem)
	api.GET("/borrowers", borrowers.List, need(authz.OpListBorrowers))

	api.GET("/me/loans", loans.MyLoans, need(authz.OpMyLoans))
	api.GET("/me/loan-requests", requests.Mine, need(authz.OpMyRequests))
	api.GET("/me/status", requests.Status, need(authz.OpMyRequests))

	api.POST("/loan-requests", requests.Submit, need(authz.OpSubmitRequest), idem)
	api.GET("/loan-requests/pending", requests.Pending, need(authz.OpPendingRequests))
	api.POST("/loan-requests/:request_id/approve", requests.Approve, need(authz.OpApproveRequest), idem, qc.Invalidate())
	api.POST("/loan-requests/:request_id/decline", requests.Decline, need(authz.OpDeclineRequest), idem)

	return e
}
