package loanmock

import (
	"context"
	"errors"

	domain "loan-ledger/internal/domain/loan"
)

var (
	_ domain.Repository          = (*Repo)(nil)
	_ domain.RepaymentRepository = (*RepaymentRepo)(nil)
)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset reads return errUnimplemented; unset writes succeed.
type Repo struct {
	CreateFn             func(ctx context.Context, l *domain.Loan) error
	SaveFn               func(ctx context.Context, l *domain.Loan) error
	GetByIDFn            func(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDForUpdateFn   func(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDsFn           func(ctx context.Context, ids []string) ([]domain.Loan, error)
	ListNewestFirstFn    func(ctx context.Context) ([]domain.Loan, error)
	ListByBorrowerNameFn func(ctx context.Context, name string) ([]domain.Loan, error)
	ListByOwnerFn        func(ctx context.Context, borrowerID, name string) ([]domain.Loan, error)
	DeleteFn             func(ctx context.Context, id string) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByIDs(ctx context.Context, ids []string) ([]domain.Loan, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListNewestFirst(ctx context.Context) ([]domain.Loan, error) {
	if m.ListNewestFirstFn != nil {
		return m.ListNewestFirstFn(ctx)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListByBorrowerName(ctx context.Context, name string) ([]domain.Loan, error) {
	if m.ListByBorrowerNameFn != nil {
		return m.ListByBorrowerNameFn(ctx, name)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListByOwner(ctx context.Context, borrowerID, name string) ([]domain.Loan, error) {
	if m.ListByOwnerFn != nil {
		return m.ListByOwnerFn(ctx, borrowerID, name)
	}
	return nil, errUnimplemented
}

func (m *Repo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// RepaymentRepo is a function-backed mock that satisfies domain.RepaymentRepository.
type RepaymentRepo struct {
	CreateFn          func(ctx context.Context, r *domain.Repayment) error
	ListNewestFirstFn func(ctx context.Context) ([]domain.Repayment, error)
	SumByLoanIDsFn    func(ctx context.Context, loanIDs []string) ([]domain.RepaidTotal, error)
}

func (m *RepaymentRepo) Create(ctx context.Context, r *domain.Repayment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *RepaymentRepo) ListNewestFirst(ctx context.Context) ([]domain.Repayment, error) {
	if m.ListNewestFirstFn != nil {
		return m.ListNewestFirstFn(ctx)
	}
	return nil, errUnimplemented
}

func (m *RepaymentRepo) SumByLoanIDs(ctx context.Context, loanIDs []string) ([]domain.RepaidTotal, error) {
	if m.SumByLoanIDsFn != nil {
		return m.SumByLoanIDsFn(ctx, loanIDs)
	}
	return nil, nil
}
