package mysql

import (
	"context"

	borrowerDomain "loan-ledger/internal/domain/borrower"

	"gorm.io/gorm"
)

type AuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) *AuditRepository { return &AuditRepository{db: db} }

func (r *AuditRepository) Create(ctx context.Context, a *borrowerDomain.AuditLog) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AuditRepository) ListByRequest(ctx context.Context, requestID string) ([]borrowerDomain.AuditLog, error) {
	var out []borrowerDomain.AuditLog
	res := r.db.WithContext(ctx).
		Where("loan_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&out)
	return out, res.Error
}
