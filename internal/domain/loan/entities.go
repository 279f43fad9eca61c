package loan

import (
	"fmt"
	"time"

	"loan-ledger/internal/domain/errs"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = fmt.Errorf("loan %w", errs.ErrNotFound)
)

// Loan is a ledger entry. TotalOwed is derived from Principal and MarkupPct and
// is recomputed whenever either changes.
type Loan struct {
	ID           string          `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	BorrowerName string          `gorm:"column:borrower_name;size:255;not null;index:idx_loans_borrower_name" json:"borrower_name"`
	Principal    decimal.Decimal `gorm:"column:principal;type:decimal(18,2);not null" json:"loan_amount"`
	MarkupPct    decimal.Decimal `gorm:"column:markup_pct;type:decimal(6,2);not null" json:"markup_percentage"`
	TotalOwed    decimal.Decimal `gorm:"column:total_owed;type:decimal(20,6);not null" json:"total_owed"`
	// BorrowerID is the registered borrower owning the loan. Nil for loans an
	// admin recorded by name only.
	BorrowerID *string `gorm:"column:borrower_id;type:char(36);index:idx_loans_borrower_id" json:"borrower_id,omitempty"`
	// SourceRequestID links a loan created by an approval back to its request.
	SourceRequestID *string     `gorm:"column:source_request_id;type:char(36);index" json:"source_request_id,omitempty"`
	CreatedAt       time.Time   `gorm:"column:created_at;not null;index:idx_loans_created_at" json:"created_at"`
	Repayments      []Repayment `gorm:"foreignKey:LoanID" json:"repayments"`
}

func (Loan) TableName() string { return "loans" }

type Repayment struct {
	ID     string          `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	LoanID string          `gorm:"column:loan_id;type:char(36);not null;index:idx_repayments_loan_id" json:"loan_id"`
	Amount decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Date   time.Time       `gorm:"column:paid_at;not null;index:idx_repayments_paid_at" json:"date"`
}

func (Repayment) TableName() string { return "repayments" }

// OwnedBy reports whether the borrower with the given id and full name owns l.
// Loans without an owner id fall back to the recorded name.
func (l Loan) OwnedBy(borrowerID, name string) bool {
	if l.BorrowerID != nil {
		return *l.BorrowerID == borrowerID
	}
	return l.BorrowerName == name
}

// RepaidTotal is the summed repayment amount of one loan.
type RepaidTotal struct {
	LoanID string          `gorm:"column:loan_id"`
	Total  decimal.Decimal `gorm:"column:total"`
}
