package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/domain/errs"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/money"
	"loan-ledger/internal/domain/uow"
	"loan-ledger/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNameLen = 255

var (
	hundred = decimal.NewFromInt(100)

	// ErrOutOfScope: a borrower touched a loan owned by someone else.
	ErrOutOfScope = fmt.Errorf("%w: loan belongs to another borrower", errs.ErrUnauthorized)
)

type Usecase struct {
	loans      loan.Repository
	repayments loan.RepaymentRepository
	uow        uow.UnitOfWork

	// ownScope limits borrowers to the loans they own.
	ownScope bool
	now      func() time.Time
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

// WithOwnScope toggles the borrower ownership check on loan mutations.
func WithOwnScope(own bool) Option { return func(u *Usecase) { u.ownScope = own } }

func NewUsecase(loans loan.Repository, repayments loan.RepaymentRepository, tx uow.UnitOfWork, opts ...Option) *Usecase {
	u := &Usecase{
		loans:      loans,
		repayments: repayments,
		uow:        tx,
		ownScope:   true,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func mapRepoErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return loan.ErrNotFound
	}
	return errs.Internal(err)
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", errs.Invalid("borrower_name", "is required")
	case len(name) > maxNameLen:
		return "", errs.Invalid("borrower_name", "is too long")
	}
	return name, nil
}

func validatePrincipal(p decimal.Decimal) error {
	if !p.IsPositive() {
		return errs.Invalid("loan_amount", "must be greater than 0")
	}
	return nil
}

func validateMarkup(m decimal.Decimal) error {
	if m.IsNegative() || m.GreaterThan(hundred) {
		return errs.Invalid("markup_percentage", "must be between 0 and 100")
	}
	return nil
}

func (u *Usecase) restricted(a actor.Actor) bool { return u.ownScope && a.IsBorrower() }

func (u *Usecase) checkScope(a actor.Actor, l *loan.Loan) error {
	if u.restricted(a) && !l.OwnedBy(a.ID, a.Name) {
		return ErrOutOfScope
	}
	return nil
}

func (u *Usecase) build(in CreateLoanInput) (*loan.Loan, error) {
	name, err := validateName(in.BorrowerName)
	if err != nil {
		return nil, err
	}
	if err := validatePrincipal(in.Principal); err != nil {
		return nil, err
	}
	if err := validateMarkup(in.MarkupPct); err != nil {
		return nil, err
	}
	return &loan.Loan{
		ID:              id.New(),
		BorrowerName:    name,
		Principal:       in.Principal,
		MarkupPct:       in.MarkupPct,
		TotalOwed:       money.TotalOwed(in.Principal, in.MarkupPct),
		BorrowerID:      in.BorrowerID,
		SourceRequestID: in.SourceRequestID,
		CreatedAt:       u.now(),
	}, nil
}

// CreateInTx validates and persists a loan through repos bound to an open
// transaction. Repository errors are returned unmapped.
func (u *Usecase) CreateInTx(ctx context.Context, r uow.Repos, in CreateLoanInput) (*loan.Loan, error) {
	l, err := u.build(in)
	if err != nil {
		return nil, err
	}
	if err := r.Loans.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (u *Usecase) CreateLoan(ctx context.Context, a actor.Actor, in CreateLoanInput) (*LoanDTO, error) {
	in.BorrowerID = nil
	if a.IsBorrower() {
		owner := a.ID
		in.BorrowerID = &owner
		if u.ownScope {
			in.BorrowerName = a.Name
		}
	}
	in.SourceRequestID = nil

	var created *loan.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := u.CreateInTx(ctx, r, in)
		created = l
		return err
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	dto := ToLoanDTO(*created, decimal.Zero)
	return &dto, nil
}

// AddRepayment records a payment. Amounts beyond the remaining balance are accepted.
func (u *Usecase) AddRepayment(ctx context.Context, a actor.Actor, loanID string, amount decimal.Decimal) (*LoanDTO, error) {
	if !amount.IsPositive() {
		return nil, errs.Invalid("amount", "must be greater than 0")
	}
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if err := u.checkScope(a, l); err != nil {
			return err
		}
		return r.Repayments.Create(ctx, &loan.Repayment{
			ID:     id.New(),
			LoanID: l.ID,
			Amount: amount,
			Date:   u.now(),
		})
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return u.GetLoan(ctx, a, loanID)
}

// UpdateLoan merges the given fields and recomputes TotalOwed. Repayments are kept.
func (u *Usecase) UpdateLoan(ctx context.Context, a actor.Actor, loanID string, in UpdateLoanInput) (*LoanDTO, error) {
	if in.empty() {
		return nil, errs.Invalid("body", "at least one field must be provided")
	}
	var name string
	if in.BorrowerName != nil {
		n, err := validateName(*in.BorrowerName)
		if err != nil {
			return nil, err
		}
		name = n
	}
	if in.Principal != nil {
		if err := validatePrincipal(*in.Principal); err != nil {
			return nil, err
		}
	}
	if in.MarkupPct != nil {
		if err := validateMarkup(*in.MarkupPct); err != nil {
			return nil, err
		}
	}

	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if err := u.checkScope(a, l); err != nil {
			return err
		}
		if in.BorrowerName != nil {
			if u.restricted(a) && name != a.Name {
				return ErrOutOfScope
			}
			l.BorrowerName = name
		}
		if in.Principal != nil {
			l.Principal = *in.Principal
		}
		if in.MarkupPct != nil {
			l.MarkupPct = *in.MarkupPct
		}
		l.TotalOwed = money.TotalOwed(l.Principal, l.MarkupPct)
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return u.GetLoan(ctx, a, loanID)
}

// DeleteLoan removes the loan with its repayments and returns the deleted id.
func (u *Usecase) DeleteLoan(ctx context.Context, a actor.Actor, loanID string) (string, error) {
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		if err := u.checkScope(a, l); err != nil {
			return err
		}
		return r.Loans.Delete(ctx, l.ID)
	})
	if err != nil {
		return "", mapRepoErr(err)
	}
	return loanID, nil
}

func (u *Usecase) GetLoan(ctx context.Context, a actor.Actor, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := u.checkScope(a, l); err != nil {
		return nil, err
	}
	totals, err := u.TotalRepaidBatch(ctx, []string{l.ID})
	if err != nil {
		return nil, err
	}
	dto := ToLoanDTO(*l, totals[0])
	return &dto, nil
}

// ListActiveLoans returns loans with a balance above money.Epsilon, newest first.
func (u *Usecase) ListActiveLoans(ctx context.Context) ([]LoanDTO, error) {
	loans, err := u.loans.ListNewestFirst(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	ids := make([]string, len(loans))
	for i, l := range loans {
		ids[i] = l.ID
	}
	totals, err := u.TotalRepaidBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]LoanDTO, 0, len(loans))
	for i, l := range loans {
		if !money.IsOutstanding(l.TotalOwed, totals[i]) {
			continue
		}
		out = append(out, ToLoanDTO(l, totals[i]))
	}
	return out, nil
}

// TotalRepaidBatch returns one total per id, in input order; loans without
// repayments (or unknown ids) get zero.
func (u *Usecase) TotalRepaidBatch(ctx context.Context, ids []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(ids))
	for i := range out {
		out[i] = decimal.Zero
	}
	if len(ids) == 0 {
		return out, nil
	}
	sums, err := u.repayments.SumByLoanIDs(ctx, ids)
	if err != nil {
		return nil, errs.Internal(err)
	}
	byID := make(map[string]decimal.Decimal, len(sums))
	for _, s := range sums {
		byID[s.LoanID] = s.Total
	}
	for i, loanID := range ids {
		if t, ok := byID[loanID]; ok {
			out[i] = t
		}
	}
	return out, nil
}

// LoansByIDs returns one entry per id, in input order, nil for unknown ids.
func (u *Usecase) LoansByIDs(ctx context.Context, ids []string) ([]*loan.Loan, error) {
	out := make([]*loan.Loan, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := u.loans.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errs.Internal(err)
	}
	byID := make(map[string]*loan.Loan, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for i, loanID := range ids {
		out[i] = byID[loanID]
	}
	return out, nil
}

// LoansForBorrowerName returns every loan recorded under name, newest first,
// with repayments.
func (u *Usecase) LoansForBorrowerName(ctx context.Context, name string) ([]loan.Loan, error) {
	loans, err := u.loans.ListByBorrowerName(ctx, name)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return loans, nil
}

// LoansForBorrower lists the calling borrower's loans. In own scope that is
// the loans they own plus ownerless ones under their name; otherwise every
// loan under their name.
func (u *Usecase) LoansForBorrower(ctx context.Context, a actor.Actor) ([]loan.Loan, error) {
	if !u.ownScope {
		return u.LoansForBorrowerName(ctx, a.Name)
	}
	loans, err := u.loans.ListByOwner(ctx, a.ID, a.Name)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return loans, nil
}

func (u *Usecase) ListRepayments(ctx context.Context) ([]loan.Repayment, error) {
	reps, err := u.repayments.ListNewestFirst(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return reps, nil
}
