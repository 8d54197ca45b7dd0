package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusCompleted = "completed"

	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// PaymentRecord is a standalone audit-trail entry for one payment
// transaction. It is created once and never updated; the embedded
// installment it settles lives on the loan itself.
type PaymentRecord struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Method      string          `json:"method" db:"method"`
	Status      string          `json:"status" db:"status"`
	PaymentDate time.Time       `json:"payment_date" db:"payment_date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type ApplyPaymentRequest struct {
	LoanID      string          `json:"loan_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Method      string          `json:"method" validate:"required,oneof=card bank_transfer cash"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`

	// IdempotencyKey is supplied by the client so that a retried submission
	// cannot double-apply. Optional; populated from the Idempotency-Key
	// header at the boundary.
	IdempotencyKey string `json:"-"`
}

type ApplyPaymentResponse struct {
	Payment *PaymentRecord `json:"payment"`
	Loan    *Loan          `json:"loan"`
}

// LoanAudit compares a loan's running ledger against its immutable payment
// records. The two totals must agree; a mismatch means a ledger write and an
// audit write diverged.
type LoanAudit struct {
	LoanID          uuid.UUID       `json:"loan_id"`
	LedgerTotalPaid decimal.Decimal `json:"ledger_total_paid"`
	RecordedTotal   decimal.Decimal `json:"recorded_total"`
	Consistent      bool            `json:"consistent"`
}
