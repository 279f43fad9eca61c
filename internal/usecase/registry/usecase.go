package registry

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/errs"
	"loan-ledger/pkg/id"

	"gorm.io/gorm"
)

const minPhoneLen = 7

type Usecase struct {
	borrowers borrower.Repository
	requests  borrower.RequestRepository

	now      func() time.Time
	newToken func() (string, error)
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

func NewUsecase(borrowers borrower.Repository, requests borrower.RequestRepository, opts ...Option) *Usecase {
	u := &Usecase{
		borrowers: borrowers,
		requests:  requests,
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  id.NewSessionToken,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errs.Invalid(field, "is required")
	}
	return v, nil
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	var err error
	if in.FirstName, err = required("first_name", in.FirstName); err != nil {
		return in, err
	}
	if in.Surname, err = required("surname", in.Surname); err != nil {
		return in, err
	}
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if len(in.PhoneNumber) < minPhoneLen {
		return in, errs.Invalid("phone_number", "must be at least 7 characters")
	}
	if in.WhatsAppNumber != nil {
		w := strings.TrimSpace(*in.WhatsAppNumber)
		switch {
		case w == "":
			in.WhatsAppNumber = nil
		case len(w) < minPhoneLen:
			return in, errs.Invalid("whatsapp_number", "must be at least 7 characters")
		default:
			in.WhatsAppNumber = &w
		}
	}
	return in, nil
}

// Register creates a borrower and issues its session token.
func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisteredDTO, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	token, err := u.newToken()
	if err != nil {
		return nil, errs.Internal(err)
	}
	b := &borrower.Borrower{
		ID:             id.New(),
		FirstName:      in.FirstName,
		Surname:        in.Surname,
		PhoneNumber:    in.PhoneNumber,
		WhatsAppNumber: in.WhatsAppNumber,
		SessionToken:   token,
		CreatedAt:      u.now(),
	}
	if err := u.borrowers.Create(ctx, b); err != nil {
		return nil, errs.Internal(err)
	}
	return &RegisteredDTO{
		Borrower:     toBorrowerDTO(*b, borrower.StatusNew),
		SessionToken: token,
	}, nil
}

// List returns every borrower newest first, each with a freshly derived status.
func (u *Usecase) List(ctx context.Context) ([]BorrowerDTO, error) {
	list, err := u.borrowers.ListNewestFirst(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	ids := make([]string, len(list))
	for i, b := range list {
		ids[i] = b.ID
	}
	statuses, err := u.requests.StatusesByBorrowerIDs(ctx, ids)
	if err != nil {
		return nil, errs.Internal(err)
	}
	out := make([]BorrowerDTO, 0, len(list))
	for _, b := range list {
		out = append(out, toBorrowerDTO(b, borrower.DeriveStatus(statuses[b.ID])))
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, borrowerID string) (*borrower.Borrower, error) {
	b, err := u.borrowers.GetByID(ctx, borrowerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, borrower.ErrNotFound
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return b, nil
}

// Authenticate resolves a borrower from its id and session token. Unknown ids
// and mismatched tokens both yield ErrUnauthorized.
func (u *Usecase) Authenticate(ctx context.Context, borrowerID, token string) (*borrower.Borrower, error) {
	if borrowerID == "" || token == "" || !id.Valid(borrowerID) {
		return nil, errs.ErrUnauthorized
	}
	b, err := u.Get(ctx, borrowerID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(b.SessionToken), []byte(token)) != 1 {
		return nil, errs.ErrUnauthorized
	}
	return b, nil
}
