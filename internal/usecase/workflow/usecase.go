package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/errs"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/domain/uow"
	"loan-ledger/internal/usecase/ledger"
	"loan-ledger/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNoteLen = 500

// LoanCreator persists a loan inside an already open transaction.
type LoanCreator interface {
	CreateInTx(ctx context.Context, r uow.Repos, in ledger.CreateLoanInput) (*loan.Loan, error)
}

// Policy holds the request bounds and the markup applied to approved loans.
type Policy struct {
	MinAmount     decimal.Decimal
	MaxAmount     decimal.Decimal
	DefaultMarkup decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		MinAmount:     decimal.NewFromInt(50),
		MaxAmount:     decimal.NewFromInt(100_000),
		DefaultMarkup: decimal.NewFromInt(10),
	}
}

type Usecase struct {
	requests borrower.RequestRepository
	uow      uow.UnitOfWork
	loans    LoanCreator
	policy   Policy
	now      func() time.Time
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option { return func(u *Usecase) { u.now = now } }

func WithPolicy(p Policy) Option { return func(u *Usecase) { u.policy = p } }

func NewUsecase(requests borrower.RequestRepository, tx uow.UnitOfWork, loans LoanCreator, opts ...Option) *Usecase {
	u := &Usecase{
		requests: requests,
		uow:      tx,
		loans:    loans,
		policy:   DefaultPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func requireBorrower(a actor.Actor) error {
	if !a.IsBorrower() || a.ID == "" {
		return errs.ErrUnauthorized
	}
	return nil
}

func checkNote(note *string) error {
	if note != nil && utf8.RuneCountInString(*note) > maxNoteLen {
		return errs.Invalid("note", "must be at most 500 characters")
	}
	return nil
}

// Submit opens a PENDING request for the calling borrower.
func (u *Usecase) Submit(ctx context.Context, a actor.Actor, amount decimal.Decimal) (*RequestDTO, error) {
	if err := requireBorrower(a); err != nil {
		return nil, err
	}
	if amount.LessThan(u.policy.MinAmount) || amount.GreaterThan(u.policy.MaxAmount) {
		return nil, errs.Invalid("amount",
			fmt.Sprintf("must be between %s and %s", u.policy.MinAmount, u.policy.MaxAmount))
	}
	now := u.now()
	r := &borrower.LoanRequest{
		ID:         id.New(),
		BorrowerID: a.ID,
		Amount:     amount,
		Status:     borrower.RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.requests.Create(ctx, r); err != nil {
		return nil, errs.Internal(err)
	}
	dto := toRequestDTO(*r)
	dto.BorrowerName = a.Name
	return &dto, nil
}

// decide locks the request, moves it out of PENDING and writes the audit entry.
// Any error rolls the whole transaction back.
func (u *Usecase) decide(ctx context.Context, r uow.Repos, a actor.Actor, requestID string,
	to borrower.RequestStatus, action borrower.AuditAction, note *string) (*borrower.LoanRequest, error) {
	req, err := r.Requests.GetByIDForUpdate(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, borrower.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.Status != borrower.RequestPending {
		return nil, borrower.ErrAlreadyDecided
	}

	now := u.now()
	req.Status = to
	req.DecidedAt = &now
	req.AdminNote = note
	req.UpdatedAt = now
	if err := r.Requests.Save(ctx, req); err != nil {
		return nil, err
	}
	if err := u.audit(ctx, r, req.ID, action, a, note); err != nil {
		return nil, err
	}
	return req, nil
}

func (u *Usecase) audit(ctx context.Context, r uow.Repos, requestID string, action borrower.AuditAction, a actor.Actor, note *string) error {
	var actorID *string
	if a.ID != "" {
		v := a.ID
		actorID = &v
	}
	return r.Audits.Create(ctx, &borrower.AuditLog{
		ID:            id.New(),
		LoanRequestID: requestID,
		Action:        action,
		ActorID:       actorID,
		Note:          note,
		CreatedAt:     u.now(),
	})
}

// Approve marks the request APPROVED and creates the corresponding loan in one
// transaction: either the request, both audit entries and the loan are all
// written, or none of them are.
func (u *Usecase) Approve(ctx context.Context, a actor.Actor, requestID string, note *string) (*DecisionDTO, error) {
	if err := checkNote(note); err != nil {
		return nil, err
	}
	var out DecisionDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.decide(ctx, r, a, requestID, borrower.RequestApproved, borrower.AuditApprove, note)
		if err != nil {
			return err
		}

		b, err := r.Borrowers.GetByID(ctx, req.BorrowerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return borrower.ErrNotFound
		}
		if err != nil {
			return err
		}
		req.Borrower = b

		markup := u.policy.DefaultMarkup
		l, err := u.loans.CreateInTx(ctx, r, ledger.CreateLoanInput{
			BorrowerName:    b.FullName(),
			Principal:       req.Amount,
			MarkupPct:       markup,
			BorrowerID:      &req.BorrowerID,
			SourceRequestID: &req.ID,
		})
		if err != nil {
			return err
		}

		msg := fmt.Sprintf("Auto-created loan (%s @ %s%%)", req.Amount, markup)
		if err := u.audit(ctx, r, req.ID, borrower.AuditCreateLoan, a, &msg); err != nil {
			return err
		}

		out = DecisionDTO{Request: toRequestDTO(*req), LoanID: &l.ID}
		return nil
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &out, nil
}

// Decline marks the request DECLINED. No loan is created.
func (u *Usecase) Decline(ctx context.Context, a actor.Actor, requestID string, note *string) (*DecisionDTO, error) {
	if err := checkNote(note); err != nil {
		return nil, err
	}
	var out DecisionDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := u.decide(ctx, r, a, requestID, borrower.RequestDeclined, borrower.AuditDecline, note)
		if err != nil {
			return err
		}
		out = DecisionDTO{Request: toRequestDTO(*req)}
		return nil
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &out, nil
}

// StatusForBorrower derives ACTIVE > PENDING > NEW from the borrower's requests.
func (u *Usecase) StatusForBorrower(ctx context.Context, borrowerID string) (borrower.Status, error) {
	approved, err := u.requests.ExistsWithStatus(ctx, borrowerID, borrower.RequestApproved)
	if err != nil {
		return "", errs.Internal(err)
	}
	if approved {
		return borrower.StatusActive, nil
	}
	pending, err := u.requests.ExistsWithStatus(ctx, borrowerID, borrower.RequestPending)
	if err != nil {
		return "", errs.Internal(err)
	}
	if pending {
		return borrower.StatusPending, nil
	}
	return borrower.StatusNew, nil
}

func (u *Usecase) PendingRequests(ctx context.Context) ([]RequestDTO, error) {
	list, err := u.requests.ListPending(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	out := make([]RequestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, toRequestDTO(r))
	}
	return out, nil
}

// MyRequests lists the calling borrower's requests, newest first.
func (u *Usecase) MyRequests(ctx context.Context, a actor.Actor) ([]RequestDTO, error) {
	if err := requireBorrower(a); err != nil {
		return nil, err
	}
	list, err := u.requests.ListByBorrower(ctx, a.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	out := make([]RequestDTO, 0, len(list))
	for _, r := range list {
		dto := toRequestDTO(r)
		dto.BorrowerName = a.Name
		out = append(out, dto)
	}
	return out, nil
}
