package ledger

import (
	"time"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/money"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	BorrowerName string
	Principal    decimal.Decimal
	MarkupPct    decimal.Decimal
	// BorrowerID owns the loan; nil when an admin records it by name.
	BorrowerID *string
	// SourceRequestID is set when an approved request produced the loan.
	SourceRequestID *string
}

// UpdateLoanInput: nil fields are left unchanged.
type UpdateLoanInput struct {
	BorrowerName *string
	Principal    *decimal.Decimal
	MarkupPct    *decimal.Decimal
}

func (in UpdateLoanInput) empty() bool {
	return in.BorrowerName == nil && in.Principal == nil && in.MarkupPct == nil
}

type RepaymentDTO struct {
	ID     string          `json:"id"`
	LoanID string          `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

type LoanDTO struct {
	ID               string          `json:"id"`
	BorrowerName     string          `json:"borrower_name"`
	LoanAmount       decimal.Decimal `json:"loan_amount"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	TotalOwed        decimal.Decimal `json:"total_owed"`
	TotalRepaid      decimal.Decimal `json:"total_repaid"`
	Remaining        decimal.Decimal `json:"remaining"`
	SourceRequestID  *string         `json:"source_request_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Repayments       []RepaymentDTO  `json:"repayments"`
}

func ToRepaymentDTO(r loan.Repayment) RepaymentDTO {
	return RepaymentDTO{ID: r.ID, LoanID: r.LoanID, Amount: r.Amount, Date: r.Date}
}

// ToLoanDTO renders a loan with its repaid total; Remaining is floored at zero.
func ToLoanDTO(l loan.Loan, totalRepaid decimal.Decimal) LoanDTO {
	reps := make([]RepaymentDTO, 0, len(l.Repayments))
	for _, r := range l.Repayments {
		reps = append(reps, ToRepaymentDTO(r))
	}
	return LoanDTO{
		ID:               l.ID,
		BorrowerName:     l.BorrowerName,
		LoanAmount:       l.Principal,
		MarkupPercentage: l.MarkupPct,
		TotalOwed:        l.TotalOwed,
		TotalRepaid:      totalRepaid,
		Remaining:        money.Remaining(l.TotalOwed, totalRepaid),
		SourceRequestID:  l.SourceRequestID,
		CreatedAt:        l.CreatedAt,
		Repayments:       reps,
	}
}
