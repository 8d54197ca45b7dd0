package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/peerlend/loan-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create persists a new loan together with its installment schedule in
	// one transaction
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan with its installments
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// List retrieves loans matching the filter, installments included
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// UpdateLedger writes the loan's ledger fields (total_paid,
	// remaining_amount, status, updated_at) and, when settled is non-nil,
	// the settled installment row, in one transaction
	UpdateLedger(ctx context.Context, loan *domain.Loan, settled *domain.Installment) error

	// UpdateStatus updates only the loan status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// UpdateInstallmentStatus updates the status of a single installment
	UpdateInstallmentStatus(ctx context.Context, loanID uuid.UUID, sequence int, status string) error

	// FindActive retrieves loans with status ACTIVE or APPROVED
	FindActive(ctx context.Context) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment audit records
type PaymentRepository interface {
	// Create appends a new payment record
	Create(ctx context.Context, payment *domain.PaymentRecord) error

	// ListByLoan retrieves all payments for a loan, newest first
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentRecord, error)

	// ListByUser retrieves the most recent payments made by a user
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.PaymentRecord, error)

	// TotalPaid sums all payment amounts for a loan
	TotalPaid(ctx context.Context, loanID uuid.UUID) (string, error)
}

// NotificationRepository defines the interface for notification documents
type NotificationRepository interface {
	// Create inserts one notification
	Create(ctx context.Context, notification *domain.Notification) error

	// ListByUser retrieves a user's notifications, newest first
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error)

	// MarkRead flags a notification read; only the recipient may do so
	MarkRead(ctx context.Context, id uuid.UUID, userID string) error

	// Delete removes a notification; only the recipient may do so
	Delete(ctx context.Context, id uuid.UUID, userID string) error

	// ExistsReminder reports whether a reminder for the given loan and due
	// date was already created for the user since the given time
	ExistsReminder(ctx context.Context, userID string, loanID string, dueDate time.Time, since time.Time) (bool, error)
}
