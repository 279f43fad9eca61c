package mysql

import (
	"context"

	loanDomain "loan-ledger/internal/domain/loan"

	"gorm.io/gorm"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

func (r *RepaymentRepository) Create(ctx context.Context, rp *loanDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(rp).Error
}

func (r *RepaymentRepository) ListNewestFirst(ctx context.Context) ([]loanDomain.Repayment, error) {
	var out []loanDomain.Repayment
	res := r.db.WithContext(ctx).Order("paid_at DESC, id DESC").Find(&out)
	return out, res.Error
}

// SumByLoanIDs groups the repayments by loan in the database. sqlite keeps
// decimals as REAL, so there the amounts are added as decimals in Go.
func (r *RepaymentRepository) SumByLoanIDs(ctx context.Context, loanIDs []string) ([]loanDomain.RepaidTotal, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Model(&loanDomain.Repayment{}).Where("loan_id IN ?", loanIDs)
	if r.db.Dialector.Name() == "sqlite" {
		return sumInProcess(q)
	}
	var out []loanDomain.RepaidTotal
	res := q.Select("loan_id, SUM(amount) AS total").Group("loan_id").Order("loan_id").Scan(&out)
	return out, res.Error
}

func sumInProcess(q *gorm.DB) ([]loanDomain.RepaidTotal, error) {
	var rows []loanDomain.Repayment
	if err := q.Select("loan_id", "amount").Order("loan_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	var out []loanDomain.RepaidTotal
	for _, rp := range rows {
		if n := len(out); n > 0 && out[n-1].LoanID == rp.LoanID {
			out[n-1].Total = out[n-1].Total.Add(rp.Amount)
			continue
		}
		out = append(out, loanDomain.RepaidTotal{LoanID: rp.LoanID, Total: rp.Amount})
	}
	return out, nil
}
