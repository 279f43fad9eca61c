package borrowermock

import (
	"context"
	"errors"

	domain "loan-ledger/internal/domain/borrower"
)

var (
	_ domain.Repository        = (*Repo)(nil)
	_ domain.RequestRepository = (*RequestRepo)(nil)
	_ domain.AuditRepository   = (*AuditRepo)(nil)
)

var errUnimplemented = errors.New("borrowermock: method not implemented")

type Repo struct {
	CreateFn          func(ctx context.Context, b *domain.Borrower) error
	GetByIDFn         func(ctx context.Context, id string) (*domain.Borrower, error)
	ListNewestFirstFn func(ctx context.Context) ([]domain.Borrower, error)
}

func (m *Repo) Create(ctx context.Context, b *domain.Borrower) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, b)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.Borrower, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListNewestFirst(ctx context.Context) ([]domain.Borrower, error) {
	if m.ListNewestFirstFn != nil {
		return m.ListNewestFirstFn(ctx)
	}
	return nil, errUnimplemented
}

type RequestRepo struct {
	CreateFn                func(ctx context.Context, r *domain.LoanRequest) error
	SaveFn                  func(ctx context.Context, r *domain.LoanRequest) error
	GetByIDForUpdateFn      func(ctx context.Context, id string) (*domain.LoanRequest, error)
	ListPendingFn           func(ctx context.Context) ([]domain.LoanRequest, error)
	ListByBorrowerFn        func(ctx context.Context, borrowerID string) ([]domain.LoanRequest, error)
	ExistsWithStatusFn      func(ctx context.Context, borrowerID string, status domain.RequestStatus) (bool, error)
	StatusesByBorrowerIDsFn func(ctx context.Context, borrowerIDs []string) (map[string][]domain.RequestStatus, error)
}

func (m *RequestRepo) Create(ctx context.Context, r *domain.LoanRequest) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *RequestRepo) Save(ctx context.Context, r *domain.LoanRequest) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, r)
	}
	return nil
}

func (m *RequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.LoanRequest, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *RequestRepo) ListPending(ctx context.Context) ([]domain.LoanRequest, error) {
	if m.ListPendingFn != nil {
		return m.ListPendingFn(ctx)
	}
	return nil, errUnimplemented
}

func (m *RequestRepo) ListByBorrower(ctx context.Context, borrowerID string) ([]domain.LoanRequest, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrowerID)
	}
	return nil, errUnimplemented
}

func (m *RequestRepo) ExistsWithStatus(ctx context.Context, borrowerID string, status domain.RequestStatus) (bool, error) {
	if m.ExistsWithStatusFn != nil {
		return m.ExistsWithStatusFn(ctx, borrowerID, status)
	}
	return false, nil
}

func (m *RequestRepo) StatusesByBorrowerIDs(ctx context.Context, borrowerIDs []string) (map[string][]domain.RequestStatus, error) {
	if m.StatusesByBorrowerIDsFn != nil {
		return m.StatusesByBorrowerIDsFn(ctx, borrowerIDs)
	}
	return map[string][]domain.RequestStatus{}, nil
}

// AuditRepo records created entries in Created when CreateFn is unset.
type AuditRepo struct {
	CreateFn        func(ctx context.Context, a *domain.AuditLog) error
	ListByRequestFn func(ctx context.Context, requestID string) ([]domain.AuditLog, error)

	Created []domain.AuditLog
}

func (m *AuditRepo) Create(ctx context.Context, a *domain.AuditLog) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	m.Created = append(m.Created, *a)
	return nil
}

func (m *AuditRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.AuditLog, error) {
	if m.ListByRequestFn != nil {
		return m.ListByRequestFn(ctx, requestID)
	}
	return nil, errUnimplemented
}
