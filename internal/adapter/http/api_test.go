package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	mw "loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/config"
	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/infrastructure/db"
	"loan-ledger/internal/usecase/authz"
	"loan-ledger/internal/usecase/ledger"
	"loan-ledger/internal/usecase/registry"
	"loan-ledger/internal/usecase/workflow"
	"loan-ledger/pkg/id"
)

const (
	testAPIKey     = "test-api-key"
	testAdminEmail = "admin@example.com"
	testAdminPass  = "s3cret-pass"
)

type testAPI struct {
	t   *testing.T
	e   *echo.Echo
	gdb *gorm.DB
	mr  *miniredis.Miniredis
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gdb, err := db.OpenGormWithDialector(sqlite.Open(":memory:"), gormlogger.Silent)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		App:         config.AppConfig{RateLimitPerMinute: 10_000, CORSOrigins: []string{"*"}},
		Idempotency: config.IdempotencyConfig{TTL: time.Minute},
		Cache:       config.CacheConfig{LoansTTL: 5 * time.Second},
	}

	tx := mysql.NewGormUoW(gdb)
	requests := mysql.NewLoanRequestRepository(gdb)
	led := ledger.NewUsecase(mysql.NewLoanRepository(gdb), mysql.NewRepaymentRepository(gdb), tx)
	reg := registry.NewUsecase(mysql.NewBorrowerRepository(gdb), requests)
	wf := workflow.NewUsecase(requests, tx, led)
	gate, err := authz.NewGateway(authz.Settings{
		APIKey:        testAPIKey,
		AdminEmail:    testAdminEmail,
		AdminPassword: testAdminPass,
	}, reg)
	require.NoError(t, err)

	e := NewServer(Deps{
		Config:   cfg,
		Log:      zap.NewNop(),
		Gate:     gate,
		Ledger:   led,
		Registry: reg,
		Workflow: wf,
		Redis:    rdb,
	})
	return &testAPI{t: t, e: e, gdb: gdb, mr: mr}
}

type hdr map[string]string

func admin() hdr { return hdr{mw.HeaderAPIKey: testAPIKey} }

func (a *testAPI) do(method, path string, body any, h hdr) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range h {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// register creates a borrower and returns headers authenticating as it.
func (a *testAPI) register(first, surname string) (registry.RegisteredDTO, hdr) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/borrowers", map[string]any{
		"first_name":   first,
		"surname":      surname,
		"phone_number": "0820000000",
	}, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[registry.RegisteredDTO](a.t, rec)
	return reg, hdr{mw.HeaderBorrowerID: reg.Borrower.ID, mw.HeaderSessionToken: reg.SessionToken}
}

func (a *testAPI) createLoan(h hdr, name, amount, markup string) ledger.LoanDTO {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/loans", map[string]any{
		"borrower_name":     name,
		"loan_amount":       json.Number(amount),
		"markup_percentage": json.Number(markup),
	}, h)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ledger.LoanDTO](a.t, rec)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestScenario_RegisterSubmitApproveMyLoans(t *testing.T) {
	api := newTestAPI(t)

	reg, jane := api.register("Jane", "Doe")
	assert.Equal(t, "Jane Doe", reg.Borrower.FullName)
	assert.Equal(t, borrower.StatusNew, reg.Borrower.Status)
	assert.Len(t, reg.SessionToken, 64)

	rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}, jane)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decode[workflow.RequestDTO](t, rec)
	assert.Equal(t, borrower.RequestPending, req.Status)

	rec = api.do(http.MethodGet, "/api/me/status", nil, jane)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(borrower.StatusPending), decode[map[string]string](t, rec)["status"])

	rec = api.do(http.MethodGet, "/api/loan-requests/pending", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]workflow.RequestDTO](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, "Jane Doe", pending[0].BorrowerName)

	rec = api.do(http.MethodPost, "/api/loan-requests/"+req.ID+"/approve", map[string]any{"note": "ok"}, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decision := decode[workflow.DecisionDTO](t, rec)
	assert.Equal(t, borrower.RequestApproved, decision.Request.Status)
	require.NotNil(t, decision.LoanID)

	rec = api.do(http.MethodGet, "/api/me/loans", nil, jane)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mine := decode[[]ledger.LoanDTO](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, *decision.LoanID, mine[0].ID)
	assert.Equal(t, "Jane Doe", mine[0].BorrowerName)
	assert.True(t, mine[0].LoanAmount.Equal(dec("500")))
	assert.True(t, mine[0].MarkupPercentage.Equal(dec("10")))
	assert.True(t, mine[0].TotalOwed.Equal(dec("550")), mine[0].TotalOwed.String())
	assert.True(t, mine[0].TotalRepaid.IsZero())
	require.NotNil(t, mine[0].SourceRequestID)
	assert.Equal(t, req.ID, *mine[0].SourceRequestID)

	var audits []borrower.AuditLog
	require.NoError(t, api.gdb.Order("created_at ASC, action ASC").Find(&audits).Error)
	require.Len(t, audits, 2)
	actions := []borrower.AuditAction{audits[0].Action, audits[1].Action}
	assert.ElementsMatch(t, []borrower.AuditAction{borrower.AuditApprove, borrower.AuditCreateLoan}, actions)

	rec = api.do(http.MethodGet, "/api/borrowers", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]registry.BorrowerDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, borrower.StatusActive, list[0].Status)
	assert.NotContains(t, rec.Body.String(), reg.SessionToken)
}

type storeSnapshot struct {
	Loans      []loan.Loan
	Repayments []loan.Repayment
	Borrowers  []borrower.Borrower
	Requests   []borrower.LoanRequest
	Audits     []borrower.AuditLog
}

func (a *testAPI) snapshot() storeSnapshot {
	a.t.Helper()
	var s storeSnapshot
	require.NoError(a.t, a.gdb.Order("id").Find(&s.Loans).Error)
	require.NoError(a.t, a.gdb.Order("id").Find(&s.Repayments).Error)
	require.NoError(a.t, a.gdb.Order("id").Find(&s.Borrowers).Error)
	require.NoError(a.t, a.gdb.Order("id").Find(&s.Requests).Error)
	require.NoError(a.t, a.gdb.Order("id").Find(&s.Audits).Error)
	return s
}

func TestAnonymousCallerIsRejectedWithoutStateChange(t *testing.T) {
	api := newTestAPI(t)
	_, jane := api.register("Jane", "Doe")
	l := api.createLoan(admin(), "Jane Doe", "1000", "10")
	rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}, jane)
	require.Equal(t, http.StatusCreated, rec.Code)
	reqID := decode[workflow.RequestDTO](t, rec).ID

	before := api.snapshot()

	calls := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/loans", nil},
		{http.MethodPost, "/api/loans", map[string]any{"borrower_name": "X", "loan_amount": 10, "markup_percentage": 1}},
		{http.MethodGet, "/api/loans/" + l.ID, nil},
		{http.MethodPatch, "/api/loans/" + l.ID, map[string]any{"markup_percentage": 50}},
		{http.MethodDelete, "/api/loans/" + l.ID, nil},
		{http.MethodPost, "/api/loans/" + l.ID + "/repayments", map[string]any{"amount": 10}},
		{http.MethodGet, "/api/repayments", nil},
		{http.MethodGet, "/api/borrowers", nil},
		{http.MethodGet, "/api/me/loans", nil},
		{http.MethodGet, "/api/me/loan-requests", nil},
		{http.MethodGet, "/api/me/status", nil},
		{http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}},
		{http.MethodGet, "/api/loan-requests/pending", nil},
		{http.MethodPost, "/api/loan-requests/" + reqID + "/approve", nil},
		{http.MethodPost, "/api/loan-requests/" + reqID + "/decline", nil},
	}
	bad := hdr{mw.HeaderBorrowerID: jane[mw.HeaderBorrowerID], mw.HeaderSessionToken: "forged", mw.HeaderAPIKey: "wrong"}
	for _, h := range []hdr{nil, bad} {
		for _, c := range calls {
			rec := api.do(c.method, c.path, c.body, h)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", c.method, c.path)
		}
	}

	assert.Equal(t, before, api.snapshot())
}

func TestAuthorizationRunsBeforeValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/loans", map[string]any{"loan_amount": -1}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/loans", map[string]any{"borrower_name": "Ada", "loan_amount": 0}, admin())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	er := decode[ErrorResponse](t, rec)
	assert.True(t, containsFieldMsg(er.Details, "loan_amount", "greater than 0"), er.Details)

	rec = api.do(http.MethodPost, "/api/loans", map[string]any{"borrower_name": "  ", "loan_amount": 10}, admin())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	er = decode[ErrorResponse](t, rec)
	assert.True(t, containsFieldMsg(er.Details, "borrower_name", "required"), er.Details)
}

func TestActiveLoans_CacheAndInvalidation(t *testing.T) {
	api := newTestAPI(t)
	older := api.createLoan(admin(), "Ada", "1000", "10")
	newer := api.createLoan(admin(), "Bob", "200", "0")

	rec := api.do(http.MethodGet, "/api/loans", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get(mw.HeaderCache))
	active := decode[[]ledger.LoanDTO](t, rec)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID, "newest first")

	rec = api.do(http.MethodGet, "/api/loans", nil, admin())
	assert.Equal(t, "HIT", rec.Header().Get(mw.HeaderCache))

	// paying the full balance removes the loan from the active list
	rec = api.do(http.MethodPost, "/api/loans/"+older.ID+"/repayments", map[string]any{"amount": 1100}, admin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decode[ledger.LoanDTO](t, rec)
	assert.True(t, paid.TotalRepaid.Equal(dec("1100")))
	assert.True(t, paid.Remaining.IsZero())

	rec = api.do(http.MethodGet, "/api/loans", nil, admin())
	assert.Equal(t, "MISS", rec.Header().Get(mw.HeaderCache))
	active = decode[[]ledger.LoanDTO](t, rec)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)
}

func TestUpdateLoan_MarkupOnly(t *testing.T) {
	api := newTestAPI(t)
	l := api.createLoan(admin(), "Ada", "1000", "0")

	rec := api.do(http.MethodPatch, "/api/loans/"+l.ID, map[string]any{"markup_percentage": 20}, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[ledger.LoanDTO](t, rec)
	assert.True(t, got.TotalOwed.Equal(dec("1200")), got.TotalOwed.String())
	assert.True(t, got.LoanAmount.Equal(dec("1000")))
	assert.Equal(t, "Ada", got.BorrowerName)

	rec = api.do(http.MethodPatch, "/api/loans/"+l.ID, map[string]any{}, admin())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPatch, "/api/loans/"+id.New(), map[string]any{"markup_percentage": 5}, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLoan(t *testing.T) {
	api := newTestAPI(t)
	l := api.createLoan(admin(), "Ada", "100", "0")
	api.do(http.MethodPost, "/api/loans/"+l.ID+"/repayments", map[string]any{"amount": 10}, admin())

	rec := api.do(http.MethodDelete, "/api/loans/"+l.ID, nil, admin())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, l.ID, decode[map[string]string](t, rec)["id"])

	var reps int64
	require.NoError(t, api.gdb.Model(&loan.Repayment{}).Count(&reps).Error)
	assert.Zero(t, reps)

	rec = api.do(http.MethodDelete, "/api/loans/"+l.ID, nil, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodGet, "/api/loans/"+l.ID, nil, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecline_ThenApproveConflicts(t *testing.T) {
	api := newTestAPI(t)
	_, jane := api.register("Jane", "Doe")
	rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}, jane)
	reqID := decode[workflow.RequestDTO](t, rec).ID

	rec = api.do(http.MethodPost, "/api/loan-requests/"+reqID+"/decline", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decision := decode[workflow.DecisionDTO](t, rec)
	assert.Equal(t, borrower.RequestDeclined, decision.Request.Status)
	assert.Nil(t, decision.LoanID)

	rec = api.do(http.MethodPost, "/api/loan-requests/"+reqID+"/approve", nil, admin())
	assert.Equal(t, http.StatusConflict, rec.Code)

	var loans int64
	require.NoError(t, api.gdb.Model(&loan.Loan{}).Count(&loans).Error)
	assert.Zero(t, loans)

	rec = api.do(http.MethodGet, "/api/me/loan-requests", nil, jane)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]workflow.RequestDTO](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, borrower.RequestDeclined, mine[0].Status)
}

func TestSubmit_OutOfBounds(t *testing.T) {
	api := newTestAPI(t)
	_, jane := api.register("Jane", "Doe")
	for _, amount := range []string{"49.99", "100000.01"} {
		rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": json.Number(amount)}, jane)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, amount)
	}
	rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}, admin())
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "admins cannot submit requests")
}

func TestListRepayments_BorrowerName(t *testing.T) {
	api := newTestAPI(t)
	l := api.createLoan(admin(), "Ada", "100", "0")
	api.do(http.MethodPost, "/api/loans/"+l.ID+"/repayments", map[string]any{"amount": 10}, admin())
	api.do(http.MethodPost, "/api/loans/"+l.ID+"/repayments", map[string]any{"amount": 20}, admin())
	orphan := loan.Repayment{ID: id.New(), LoanID: id.New(), Amount: dec("5"), Date: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, api.gdb.Create(&orphan).Error)

	rec := api.do(http.MethodGet, "/api/repayments", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []struct {
		ID           string `json:"id"`
		LoanID       string `json:"loan_id"`
		BorrowerName string `json:"borrower_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, orphan.ID, got[0].ID, "newest first")
	assert.Equal(t, unknownBorrower, got[0].BorrowerName)
	assert.Equal(t, "Ada", got[1].BorrowerName)
	assert.Equal(t, "Ada", got[2].BorrowerName)
}

func TestBorrowerScope(t *testing.T) {
	api := newTestAPI(t)
	_, ada := api.register("Ada", "Lovelace")
	_, bob := api.register("Bob", "Stone")

	l := api.createLoan(ada, "Someone Else", "100", "5")
	assert.Equal(t, "Ada Lovelace", l.BorrowerName, "borrowers create loans under their own name")

	rec := api.do(http.MethodPost, "/api/loans/"+l.ID+"/repayments", map[string]any{"amount": 10}, bob)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodGet, "/api/loans/"+l.ID, nil, bob)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodPatch, "/api/loans/"+l.ID, map[string]any{"borrower_name": "Bob Stone"}, ada)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/loans/"+l.ID+"/repayments", map[string]any{"amount": 10}, ada)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBorrowerScope_SharedFullName(t *testing.T) {
	api := newTestAPI(t)
	_, jane := api.register("Jane", "Doe")
	rec := api.do(http.MethodPost, "/api/loan-requests", map[string]any{"amount": 500}, jane)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reqID := decode[workflow.RequestDTO](t, rec).ID
	rec = api.do(http.MethodPost, "/api/loan-requests/"+reqID+"/approve", nil, admin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loanID := *decode[workflow.DecisionDTO](t, rec).LoanID

	_, namesake := api.register("Jane", "Doe")
	rec = api.do(http.MethodDelete, "/api/loans/"+loanID, nil, namesake)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, "/api/loans/"+loanID+"/repayments", map[string]any{"amount": 10}, namesake)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodGet, "/api/loans/"+loanID, nil, namesake)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/me/loans", nil, namesake)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ledger.LoanDTO](t, rec))

	own := api.createLoan(namesake, "Jane Doe", "100", "0")
	rec = api.do(http.MethodDelete, "/api/loans/"+own.ID, nil, jane)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/me/loans", nil, jane)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]ledger.LoanDTO](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, loanID, mine[0].ID)
}

func TestAdminLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/admin/login", map[string]any{"email": "ADMIN@example.com", "password": testAdminPass}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, testAPIKey, decode[map[string]string](t, rec)["api_key"])

	rec = api.do(http.MethodPost, "/api/admin/login", map[string]any{"email": testAdminEmail, "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/admin/login", map[string]any{"email": "not-an-email", "password": "x"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIdempotentCreateLoan(t *testing.T) {
	api := newTestAPI(t)
	h := admin()
	h[mw.HeaderRequestID] = id.New()
	body := map[string]any{"borrower_name": "Ada", "loan_amount": 100, "markup_percentage": 0}

	first := api.do(http.MethodPost, "/api/loans", body, h)
	second := api.do(http.MethodPost, "/api/loans", body, h)
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var loans int64
	require.NoError(t, api.gdb.Model(&loan.Loan{}).Count(&loans).Error)
	assert.EqualValues(t, 1, loans)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/api/nope", nil, admin())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
}
