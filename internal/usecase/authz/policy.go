package authz

import (
	"fmt"

	"loan-ledger/internal/domain/actor"
	"loan-ledger/internal/domain/errs"
)

type Operation string

const (
	OpHealth           Operation = "health"
	OpAdminLogin       Operation = "adminLogin"
	OpRegisterBorrower Operation = "registerBorrower"

	OpListActiveLoans Operation = "listActiveLoans"
	OpListBorrowers   Operation = "listBorrowers"
	OpListRepayments  Operation = "listRepayments"
	OpPendingRequests Operation = "pendingRequests"
	OpApproveRequest  Operation = "approveRequest"
	OpDeclineRequest  Operation = "declineRequest"
	OpSubmitRequest   Operation = "submitRequest"
	OpMyRequests      Operation = "myRequests"
	OpMyLoans         Operation = "myLoans"
	OpGetLoan         Operation = "getLoan"
	OpCreateLoan      Operation = "createLoan"
	OpAddRepayment    Operation = "addRepayment"
	OpUpdateLoan      Operation = "updateLoan"
	OpDeleteLoan      Operation = "deleteLoan"
)

type requirement int

const (
	anyone requirement = iota
	adminOnly
	borrowerOnly
	adminOrBorrower
)

var policy = map[Operation]requirement{
	OpHealth:           anyone,
	OpAdminLogin:       anyone,
	OpRegisterBorrower: anyone,

	OpListActiveLoans: adminOnly,
	OpListBorrowers:   adminOnly,
	OpListRepayments:  adminOnly,
	OpPendingRequests: adminOnly,
	OpApproveRequest:  adminOnly,
	OpDeclineRequest:  adminOnly,

	OpSubmitRequest: borrowerOnly,
	OpMyRequests:    borrowerOnly,
	OpMyLoans:       borrowerOnly,

	OpGetLoan:      adminOrBorrower,
	OpCreateLoan:   adminOrBorrower,
	OpAddRepayment: adminOrBorrower,
	OpUpdateLoan:   adminOrBorrower,
	OpDeleteLoan:   adminOrBorrower,
}

// Authorize checks a against the requirement of op. Unknown operations are denied.
func Authorize(a actor.Actor, op Operation) error {
	req, ok := policy[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", errs.ErrUnauthorized, op)
	}
	var allowed bool
	switch req {
	case anyone:
		allowed = true
	case adminOnly:
		allowed = a.IsAdmin()
	case borrowerOnly:
		allowed = a.IsBorrower()
	case adminOrBorrower:
		allowed = a.IsAdmin() || a.IsBorrower()
	}
	if !allowed {
		return errs.ErrUnauthorized
	}
	return nil
}
