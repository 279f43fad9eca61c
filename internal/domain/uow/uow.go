package uow

import (
	"context"

	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/loan"
)

// Repos are bound to the transaction opened by UnitOfWork.
type Repos struct {
	Loans      loan.Repository
	Repayments loan.RepaymentRepository
	Borrowers  borrower.Repository
	Requests   borrower.RequestRepository
	Audits     borrower.AuditRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
