package mysql

import (
	"testing"
	"time"

	"loan-ledger/internal/domain/borrower"
	"loan-ledger/internal/domain/loan"
	"loan-ledger/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates an in-memory sqlite DB with the full schema. One
// connection keeps every query on the same in-memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&loan.Loan{}, &loan.Repayment{},
		&borrower.Borrower{}, &borrower.LoanRequest{}, &borrower.AuditLog{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var baseTime = time.Date(2025, 9, 6, 10, 0, 0, 0, time.UTC)

func makeLoan(name string, principal, markup string, at time.Time) *loan.Loan {
	p, m := dec(principal), dec(markup)
	return &loan.Loan{
		ID:           id.New(),
		BorrowerName: name,
		Principal:    p,
		MarkupPct:    m,
		TotalOwed:    p.Add(p.Mul(m).Div(decimal.NewFromInt(100))),
		CreatedAt:    at,
	}
}

func makeRepayment(loanID, amount string, at time.Time) *loan.Repayment {
	return &loan.Repayment{ID: id.New(), LoanID: loanID, Amount: dec(amount), Date: at}
}

func makeBorrower(first, last string, at time.Time) *borrower.Borrower {
	return &borrower.Borrower{
		ID:           id.New(),
		FirstName:    first,
		Surname:      last,
		PhoneNumber:  "08123456789",
		SessionToken: "tok-" + first,
		CreatedAt:    at,
	}
}

func makeRequest(borrowerID, amount string, status borrower.RequestStatus, at time.Time) *borrower.LoanRequest {
	return &borrower.LoanRequest{
		ID:         id.New(),
		BorrowerID: borrowerID,
		Amount:     dec(amount),
		Status:     status,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}
