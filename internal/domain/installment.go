package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending   = "PENDING"
	InstallmentStatusCompleted = "COMPLETED"
	InstallmentStatusLate      = "LATE"
	InstallmentStatusMissed    = "MISSED"
)

// Installment is one scheduled repayment within a loan's amortization
// schedule. Amount and due date are fixed at schedule generation; only the
// status and settlement metadata change afterwards.
type Installment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	LoanID      uuid.UUID       `json:"loan_id" db:"loan_id"`
	Sequence    int             `json:"sequence" db:"sequence"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	DueDate     time.Time       `json:"due_date" db:"due_date"`
	Status      string          `json:"status" db:"status"`
	PaymentDate *time.Time      `json:"payment_date,omitempty" db:"payment_date"`
	Method      string          `json:"method,omitempty" db:"method"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Unpaid reports whether the installment still awaits payment.
func (i *Installment) Unpaid() bool {
	return i.Status == InstallmentStatusPending || i.Status == InstallmentStatusLate
}
