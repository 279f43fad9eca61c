package workflow

import (
	"time"

	"loan-ledger/internal/domain/borrower"

	"github.com/shopspring/decimal"
)

type RequestDTO struct {
	ID           string                 `json:"id"`
	BorrowerID   string                 `json:"borrower_id"`
	BorrowerName string                 `json:"borrower_name,omitempty"`
	Amount       decimal.Decimal        `json:"amount"`
	Status       borrower.RequestStatus `json:"status"`
	AdminNote    *string                `json:"admin_note,omitempty"`
	DecidedAt    *time.Time             `json:"decided_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// DecisionDTO is the result of approve/decline. LoanID is set only on approval.
type DecisionDTO struct {
	Request RequestDTO `json:"request"`
	LoanID  *string    `json:"loan_id,omitempty"`
}

func toRequestDTO(r borrower.LoanRequest) RequestDTO {
	dto := RequestDTO{
		ID:         r.ID,
		BorrowerID: r.BorrowerID,
		Amount:     r.Amount,
		Status:     r.Status,
		AdminNote:  r.AdminNote,
		DecidedAt:  r.DecidedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Borrower != nil {
		dto.BorrowerName = r.Borrower.FullName()
	}
	return dto
}
