package mysql

import (
	"context"

	loanDomain "loan-ledger/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func newestRepaymentsFirst(db *gorm.DB) *gorm.DB {
	return db.Order("paid_at DESC, id DESC")
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(l).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Preload("Repayments", newestRepaymentsFirst).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByIDs(ctx context.Context, ids []string) ([]loanDomain.Loan, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListNewestFirst(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Preload("Repayments", newestRepaymentsFirst).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByBorrowerName(ctx context.Context, name string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Preload("Repayments", newestRepaymentsFirst).
		Where("borrower_name = ?", name).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByOwner(ctx context.Context, borrowerID, name string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Preload("Repayments", newestRepaymentsFirst).
		Where("borrower_id = ? OR (borrower_id IS NULL AND borrower_name = ?)", borrowerID, name).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("loan_id = ?", id).Delete(&loanDomain.Repayment{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&loanDomain.Loan{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
