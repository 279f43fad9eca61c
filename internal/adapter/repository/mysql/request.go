package mysql

import (
	"context"

	borrowerDomain "loan-ledger/internal/domain/borrower"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRequestRepository struct{ db *gorm.DB }

func NewLoanRequestRepository(db *gorm.DB) *LoanRequestRepository {
	return &LoanRequestRepository{db: db}
}

func (r *LoanRequestRepository) Create(ctx context.Context, lr *borrowerDomain.LoanRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(lr).Error
}

func (r *LoanRequestRepository) Save(ctx context.Context, lr *borrowerDomain.LoanRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(lr).Error
}

func (r *LoanRequestRepository) GetByIDForUpdate(ctx context.Context, id string) (*borrowerDomain.LoanRequest, error) {
	var out borrowerDomain.LoanRequest
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *LoanRequestRepository) ListPending(ctx context.Context) ([]borrowerDomain.LoanRequest, error) {
	var out []borrowerDomain.LoanRequest
	res := r.db.WithContext(ctx).
		Preload("Borrower").
		Where("status = ?", borrowerDomain.RequestPending).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRequestRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]borrowerDomain.LoanRequest, error) {
	var out []borrowerDomain.LoanRequest
	res := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("created_at DESC, id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRequestRepository) ExistsWithStatus(ctx context.Context, borrowerID string, status borrowerDomain.RequestStatus) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&borrowerDomain.LoanRequest{}).
		Where("borrower_id = ? AND status = ?", borrowerID, status).
		Count(&n)
	return n > 0, res.Error
}

type borrowerStatusRow struct {
	BorrowerID string
	Status     borrowerDomain.RequestStatus
}

func (r *LoanRequestRepository) StatusesByBorrowerIDs(ctx context.Context, borrowerIDs []string) (map[string][]borrowerDomain.RequestStatus, error) {
	out := make(map[string][]borrowerDomain.RequestStatus, len(borrowerIDs))
	if len(borrowerIDs) == 0 {
		return out, nil
	}
	var rows []borrowerStatusRow
	res := r.db.WithContext(ctx).
		Model(&borrowerDomain.LoanRequest{}).
		Select("DISTINCT borrower_id, status").
		Where("borrower_id IN ?", borrowerIDs).
		Scan(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	for _, row := range rows {
		out[row.BorrowerID] = append(out[row.BorrowerID], row.Status)
	}
	return out, nil
}
