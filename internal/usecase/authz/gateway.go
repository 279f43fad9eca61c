package authz

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/errs"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator resolves a borrower from its presented credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, borrowerID, token string) (*borrower.Borrower, error)
}

type Credentials struct {
	APIKey       string
	BorrowerID   string
	SessionToken string
}

type Settings struct {
	APIKey        string
	AdminEmail    string
	AdminPassword string
}

type Gateway struct {
	apiKey     []byte
	adminEmail string
	// passHash is nil when no admin password is configured.
	passHash  []byte
	borrowers Authenticator
}

func NewGateway(s Settings, borrowers Authenticator) (*Gateway, error) {
	g := &Gateway{
		apiKey:     []byte(s.APIKey),
		adminEmail: strings.ToLower(strings.TrimSpace(s.AdminEmail)),
		borrowers:  borrowers,
	}
	if s.AdminPassword != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(s.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		g.passHash = h
	}
	return g, nil
}

// Classify resolves the caller class. An API key takes precedence over borrower
// credentials. Bad or missing credentials yield an anonymous actor; only a
// storage failure returns an error.
func (g *Gateway) Classify(ctx context.Context, c Credentials) (actor.Actor, error) {
	if c.APIKey != "" && len(g.apiKey) > 0 &&
		subtle.ConstantTimeCompare([]byte(c.APIKey), g.apiKey) == 1 {
		return actor.NewAdmin(), nil
	}
	if c.BorrowerID == "" || c.SessionToken == "" {
		return actor.Anon(), nil
	}
	b, err := g.borrowers.Authenticate(ctx, c.BorrowerID, c.SessionToken)
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return actor.Anon(), nil
	case err != nil:
		return actor.Anon(), err
	}
	return actor.NewBorrower(b.ID, b.FullName()), nil
}

// AdminLogin exchanges the admin email and password for the API key.
func (g *Gateway) AdminLogin(ctx context.Context, email, password string) (string, error) {
	if len(g.apiKey) == 0 || g.passHash == nil {
		return "", errs.ErrUnauthorized
	}
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))), []byte(g.adminEmail)) == 1
	passErr := bcrypt.CompareHashAndPassword(g.passHash, []byte(password))
	if !emailOK || passErr != nil {
		return "", errs.ErrUnauthorized
	}
	return string(g.apiKey), nil
}

func (g *Gateway) Authorize(a actor.Actor, op Operation) error { return Authorize(a, op) }
