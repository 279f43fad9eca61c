package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	Save(ctx context.Context, l *Loan) error

	// GetByID preloads repayments, newest first.
	GetByID(ctx context.Context, id string) (*Loan, error)
	// GetByIDForUpdate locks the loan row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*Loan, error)
	GetByIDs(ctx context.Context, ids []string) ([]Loan, error)

	// ListNewestFirst preloads repayments.
	ListNewestFirst(ctx context.Context) ([]Loan, error)
	ListByBorrowerName(ctx context.Context, name string) ([]Loan, error)
	// ListByOwner returns the loans owned by borrowerID plus the ownerless
	// loans recorded under name, newest first.
	ListByOwner(ctx context.Context, borrowerID, name string) ([]Loan, error)

	// Delete removes the loan and its repayments. Returns gorm.ErrRecordNotFound
	// when no loan matched.
	Delete(ctx context.Context, id string) error
}

type RepaymentRepository interface {
	Create(ctx context.Context, r *Repayment) error
	ListNewestFirst(ctx context.Context) ([]Repayment, error)
	// SumByLoanIDs returns one row per loan that has at least one repayment.
	SumByLoanIDs(ctx context.Context, loanIDs []string) ([]RepaidTotal, error)
}
