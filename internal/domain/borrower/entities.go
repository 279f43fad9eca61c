package borrower

import (
	"fmt"
	"strings"
	"time"

	"loan-ledger/internal/domain/errs"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = fmt.Errorf("borrower %w", errs.ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("loan request %w", errs.ErrNotFound)
	ErrAlreadyDecided  = fmt.Errorf("%w: loan request already decided", errs.ErrConflict)
)

type Borrower struct {
	ID             string  `gorm:"column:id;type:char(36);primaryKey"`
	FirstName      string  `gorm:"column:first_name;size:100;not null"`
	Surname        string  `gorm:"column:surname;size:100;not null"`
	PhoneNumber    string  `gorm:"column:phone_number;size:32;not null"`
	WhatsAppNumber *string `gorm:"column:whatsapp_number;size:32"`
	// SessionToken is the borrower's long-lived credential.
	SessionToken string    `gorm:"column:session_token;type:char(64);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index:idx_borrowers_created_at"`
}

func (Borrower) TableName() string { return "borrowers" }

// FullName is the key that links a borrower to loans in the ledger.
func (b Borrower) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.Surname)
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestDeclined RequestStatus = "DECLINED"
)

type LoanRequest struct {
	ID         string          `gorm:"column:id;type:char(36);primaryKey"`
	BorrowerID string          `gorm:"column:borrower_id;type:char(36);not null;index:idx_requests_borrower_status,priority:1"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null"`
	Status     RequestStatus   `gorm:"column:status;size:16;not null;index:idx_requests_borrower_status,priority:2"`
	AdminNote  *string         `gorm:"column:admin_note;size:500"`
	DecidedAt  *time.Time      `gorm:"column:decided_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;not null"`

	Borrower *Borrower `gorm:"foreignKey:BorrowerID"`
}

func (LoanRequest) TableName() string { return "loan_requests" }

type AuditAction string

const (
	AuditApprove    AuditAction = "APPROVE"
	AuditDecline    AuditAction = "DECLINE"
	AuditCreateLoan AuditAction = "CREATE_LOAN"
)

// AuditLog entries are append-only.
type AuditLog struct {
	ID            string      `gorm:"column:id;type:char(36);primaryKey"`
	LoanRequestID string      `gorm:"column:loan_request_id;type:char(36);not null;index"`
	Action        AuditAction `gorm:"column:action;size:16;not null"`
	ActorID       *string     `gorm:"column:actor_id;size:64"`
	Note          *string     `gorm:"column:note;size:500"`
	CreatedAt     time.Time   `gorm:"column:created_at;not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type Status string

const (
	StatusNew     Status = "NEW"
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
)

// DeriveStatus applies ACTIVE > PENDING > NEW over a borrower's request statuses.
func DeriveStatus(statuses []RequestStatus) Status {
	out := StatusNew
	for _, s := range statuses {
		switch s {
		case RequestApproved:
			return StatusActive
		case RequestPending:
			out = StatusPending
		}
	}
	return out
}
