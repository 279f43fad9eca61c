package mysql

import (
	"context"

	borrowerDomain "loan-ledger/internal/domain/borrower"

	"gorm.io/gorm"
)

type BorrowerRepository struct{ db *gorm.DB }

func NewBorrowerRepository(db *gorm.DB) *BorrowerRepository { return &BorrowerRepository{db: db} }

func (r *BorrowerRepository) Create(ctx context.Context, b *borrowerDomain.Borrower) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BorrowerRepository) GetByID(ctx context.Context, id string) (*borrowerDomain.Borrower, error) {
	var out borrowerDomain.Borrower
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&out)
	return &out, res.Error
}

func (r *BorrowerRepository) ListNewestFirst(ctx context.Context) ([]borrowerDomain.Borrower, error) {
	var out []borrowerDomain.Borrower
	res := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out)
	return out, res.Error
}
