package http

import (
	"net/http"

	"loan-ledger/internal/adapter/dataloader"
	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/usecase/ledger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const unknownBorrower = "Unknown"

type LoanHandler struct {
	uc  *ledger.Usecase
	log *zap.Logger
}

func NewLoanHandler(uc *ledger.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: log}
}

type createLoanReq struct {
	BorrowerName     string          `json:"borrower_name"     validate:"max=255"`
	LoanAmount       decimal.Decimal `json:"loan_amount"       validate:"gt=0,dec2"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage" validate:"gte=0,lte=100,dec2"`
}

// updateLoanReq: absent fields stay unchanged.
type updateLoanReq struct {
	BorrowerName     *string          `json:"borrower_name"     validate:"omitempty,max=255"`
	LoanAmount       *decimal.Decimal `json:"loan_amount"       validate:"omitempty,gt=0,dec2"`
	MarkupPercentage *decimal.Decimal `json:"markup_percentage" validate:"omitempty,gte=0,lte=100,dec2"`
}

type repaymentReq struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0,dec2"`
}

// repaymentView is a repayment with the name of the borrower it was paid against.
type repaymentView struct {
	ledger.RepaymentDTO
	BorrowerName string `json:"borrower_name"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.CreateLoan(ctx, actor.FromContext(ctx), ledger.CreateLoanInput{
		BorrowerName: req.BorrowerName,
		Principal:    req.LoanAmount,
		MarkupPct:    req.MarkupPercentage,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	ctx := c.Request().Context()
	dto, err := h.uc.GetLoan(ctx, actor.FromContext(ctx), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	var req updateLoanReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.UpdateLoan(ctx, actor.FromContext(ctx), c.Param("loan_id"), ledger.UpdateLoanInput{
		BorrowerName: req.BorrowerName,
		Principal:    req.LoanAmount,
		MarkupPct:    req.MarkupPercentage,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := h.uc.DeleteLoan(ctx, actor.FromContext(ctx), c.Param("loan_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"id": id})
}

func (h *LoanHandler) AddRepayment(c echo.Context) error {
	var req repaymentReq
	if written, err := bindAndValidate(c, &req); written {
		return err
	}
	ctx := c.Request().Context()
	dto, err := h.uc.AddRepayment(ctx, actor.FromContext(ctx), c.Param("loan_id"), req.Amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ListActiveLoans(c echo.Context) error {
	out, err := h.uc.ListActiveLoans(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// MyLoans lists the calling borrower's loans.
func (h *LoanHandler) MyLoans(c echo.Context) error {
	ctx := c.Request().Context()
	loans, err := h.uc.LoansForBorrower(ctx, actor.FromContext(ctx))
	if err != nil {
		return writeError(c, h.log, err)
	}
	ids := make([]string, len(loans))
	for i, l := range loans {
		ids[i] = l.ID
	}
	totals, err := dataloader.LoadAll(ctx, dataloader.FromContext(ctx).TotalRepaid, ids)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]ledger.LoanDTO, len(loans))
	for i, l := range loans {
		out[i] = ledger.ToLoanDTO(l, totals[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) ListRepayments(c echo.Context) error {
	ctx := c.Request().Context()
	reps, err := h.uc.ListRepayments(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	loanIDs := make([]string, len(reps))
	for i, r := range reps {
		loanIDs[i] = r.LoanID
	}
	loans, err := dataloader.LoadAll(ctx, dataloader.FromContext(ctx).LoanByID, loanIDs)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]repaymentView, len(reps))
	for i, r := range reps {
		out[i] = repaymentView{RepaymentDTO: ledger.ToRepaymentDTO(r), BorrowerName: borrowerNameOf(loans, i)}
	}
	return c.JSON(http.StatusOK, out)
}

func borrowerNameOf(loans []*loan.Loan, i int) string {
	if i < len(loans) && loans[i] != nil {
		return loans[i].BorrowerName
	}
	return unknownBorrower
}
