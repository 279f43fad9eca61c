package registry

import (
	"time"

	"loan-ledger/internal/domain/borrower"
)

type RegisterInput struct {
	FirstName      string
	Surname        string
	PhoneNumber    string
	WhatsAppNumber *string
}

type BorrowerDTO struct {
	ID             string          `json:"id"`
	FirstName      string          `json:"first_name"`
	Surname        string          `json:"surname"`
	FullName       string          `json:"full_name"`
	PhoneNumber    string          `json:"phone_number"`
	WhatsAppNumber *string         `json:"whatsapp_number,omitempty"`
	Status         borrower.Status `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RegisteredDTO is returned once, at registration; it is the only response
// that carries the session token.
type RegisteredDTO struct {
	Borrower     BorrowerDTO `json:"borrower"`
	SessionToken string      `json:"session_token"`
}

func toBorrowerDTO(b borrower.Borrower, status borrower.Status) BorrowerDTO {
	return BorrowerDTO{
		ID:             b.ID,
		FirstName:      b.FirstName,
		Surname:        b.Surname,
		FullName:       b.FullName(),
		PhoneNumber:    b.PhoneNumber,
		WhatsAppNumber: b.WhatsAppNumber,
		Status:         status,
		CreatedAt:      b.CreatedAt,
	}
}
