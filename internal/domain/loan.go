package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "PENDING"
	LoanStatusApproved  = "APPROVED"
	LoanStatusActive    = "ACTIVE"
	LoanStatusCompleted = "COMPLETED"
	LoanStatusRejected  = "REJECTED"
	LoanStatusDefaulted = "DEFAULTED"
)

// DaysPerMonth is the fixed month length used for schedule generation.
// Installment i is due start_date + 30*i days, and the loan ends at
// start_date + 30*term days.
const DaysPerMonth = 30

// Loan is the aggregate for a single peer-to-peer loan: terms, derived
// financials, the running ledger and the embedded installment schedule.
type Loan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	BorrowerID        string          `json:"borrower_id" db:"borrower_id"`
	LenderID          string          `json:"lender_id" db:"lender_id"`
	BorrowerName      string          `json:"borrower_name,omitempty" db:"borrower_name"`
	LenderName        string          `json:"lender_name,omitempty" db:"lender_name"`
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	TermMonths        int             `json:"term_months" db:"term_months"`
	Purpose           string          `json:"purpose" db:"purpose"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	TotalPaid         decimal.Decimal `json:"total_paid" db:"total_paid"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	Status            string          `json:"status" db:"status"`
	StartDate         time.Time       `json:"start_date" db:"start_date"`
	EndDate           time.Time       `json:"end_date" db:"end_date"`
	Payments          []*Installment  `json:"payments"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// IsClosed reports whether the loan is in a terminal state that rejects
// further payments and status changes.
func (l *Loan) IsClosed() bool {
	switch l.Status {
	case LoanStatusCompleted, LoanStatusRejected, LoanStatusDefaulted:
		return true
	}
	return false
}

// FirstPending returns the earliest installment still awaiting payment
// (PENDING, or LATE once the reminder scanner has flagged it overdue), or
// nil when the schedule is fully settled.
func (l *Loan) FirstPending() *Installment {
	for _, inst := range l.Payments {
		if inst.Unpaid() {
			return inst
		}
	}
	return nil
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	BorrowerID   string          `json:"borrower_id" validate:"required"`
	BorrowerName string          `json:"borrower_name"`
	Principal    decimal.Decimal `json:"principal" validate:"required"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	TermMonths   int             `json:"term_months" validate:"required,gte=1"`
	Purpose      string          `json:"purpose"`
}

type UpdateLoanStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED DEFAULTED"`
}

// LoanFilter narrows List queries; zero values mean "any".
type LoanFilter struct {
	BorrowerID string
	LenderID   string
	Status     string
}

// BorrowerSummary aggregates a borrower's position across all their loans.
type BorrowerSummary struct {
	ActiveLoans       int              `json:"active_loans"`
	CompletedLoans    int              `json:"completed_loans"`
	TotalBorrowed     decimal.Decimal  `json:"total_borrowed"`
	CurrentBalance    decimal.Decimal  `json:"current_balance"`
	TotalPaid         decimal.Decimal  `json:"total_paid"`
	NextPaymentDue    *time.Time       `json:"next_payment_due,omitempty"`
	NextPaymentAmount decimal.Decimal  `json:"next_payment_amount"`
	UpcomingPayments  []*Installment   `json:"upcoming_payments"`
	RecentPayments    []*PaymentRecord `json:"recent_payments"`
}
