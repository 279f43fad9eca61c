package borrower

import "context"

type Repository interface {
	Create(ctx context.Context, b *Borrower) error
	GetByID(ctx context.Context, id string) (*Borrower, error)
	ListNewestFirst(ctx context.Context) ([]Borrower, error)
}

type RequestRepository interface {
	Create(ctx context.Context, r *LoanRequest) error
	Save(ctx context.Context, r *LoanRequest) error

	// GetByIDForUpdate locks the request row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*LoanRequest, error)

	// ListPending preloads the borrower, oldest first.
	ListPending(ctx context.Context) ([]LoanRequest, error)
	ListByBorrower(ctx context.Context, borrowerID string) ([]LoanRequest, error)

	ExistsWithStatus(ctx context.Context, borrowerID string, status RequestStatus) (bool, error)
	// StatusesByBorrowerIDs returns the distinct request statuses per borrower.
	StatusesByBorrowerIDs(ctx context.Context, borrowerIDs []string) (map[string][]RequestStatus, error)
}

type AuditRepository interface {
	Create(ctx context.Context, a *AuditLog) error
	ListByRequest(ctx context.Context, requestID string) ([]AuditLog, error)
}
