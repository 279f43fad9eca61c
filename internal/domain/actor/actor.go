package actor

import "context"

type Kind string

const (
	Anonymous Kind = "anonymous"
	Admin     Kind = "admin"
	Borrower  Kind = "borrower"
)

// AdminID is recorded as the acting identity for API-key callers.
const AdminID = "api-key-user"

// Actor is the classified identity behind a single call.
type Actor struct {
	Kind Kind
	ID   string
	// Name is the borrower's full name; empty for admins and anonymous callers.
	Name string
}

func Anon() Actor { return Actor{Kind: Anonymous} }

func NewAdmin() Actor { return Actor{Kind: Admin, ID: AdminID} }

func NewBorrower(id, fullName string) Actor {
	return Actor{Kind: Borrower, ID: id, Name: fullName}
}

func (a Actor) IsAdmin() bool    { return a.Kind == Admin }
func (a Actor) IsBorrower() bool { return a.Kind == Borrower }

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored on ctx, or an anonymous actor.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(ctxKey{}).(Actor); ok {
		return a
	}
	return Anon()
}
