package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/repository"
)

// EventSink receives domain events and turns them into user notifications.
// Implementations are best-effort: a failure must never propagate into the
// ledger operation that raised the event.
type EventSink interface {
	OnLoanCreated(ctx context.Context, loan *domain.Loan)
	OnPaymentApplied(ctx context.Context, payment *domain.PaymentRecord, loan *domain.Loan)
	OnReminderDue(ctx context.Context, loan *domain.Loan, installment *domain.Installment, daysUntilDue int) error
	OnStatusChanged(ctx context.Context, loan *domain.Loan, status string)
}

// Notifier persists notification documents for both parties of a loan.
type Notifier struct {
	notificationRepo repository.NotificationRepository
}

func NewNotifier(notificationRepo repository.NotificationRepository) *Notifier {
	return &Notifier{notificationRepo: notificationRepo}
}

// Notify inserts one notification document and returns its id.
func (n *Notifier) Notify(ctx context.Context, userID, notifType, title, message, relatedID string, relatedData domain.RelatedData) (uuid.UUID, error) {
	notification := &domain.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        notifType,
		Title:       title,
		Message:     message,
		RelatedID:   relatedID,
		RelatedData: relatedData,
		Timestamp:   time.Now().UTC().Truncate(time.Second),
		Read:        false,
	}

	if err := n.notificationRepo.Create(ctx, notification); err != nil {
		return uuid.Nil, err
	}

	return notification.ID, nil
}

// OnLoanCreated notifies the borrower of the new offer and the lender that
// the loan was recorded. Each party is notified independently.
func (n *Notifier) OnLoanCreated(ctx context.Context, loan *domain.Loan) {
	lenderName := displayName(loan.LenderName, "a lender")
	borrowerName := displayName(loan.BorrowerName, "a borrower")

	if loan.BorrowerID != "" {
		message := fmt.Sprintf("You've received a new loan offer of Rs %s from %s.",
			loan.Principal.StringFixed(2), lenderName)
		_, err := n.Notify(ctx, loan.BorrowerID, domain.NotificationLoanApproved,
			"New Loan Offer", message, loan.ID.String(), domain.RelatedData{
				"amount":      loan.Principal.String(),
				"lender_name": lenderName,
				"term_months": fmt.Sprintf("%d", loan.TermMonths),
			})
		if err != nil {
			log.Printf("notifier: loan created notification to borrower %s failed: %v", loan.BorrowerID, err)
		}
	}

	if loan.LenderID != "" {
		message := fmt.Sprintf("You've created a new loan of Rs %s for %s.",
			loan.Principal.StringFixed(2), borrowerName)
		_, err := n.Notify(ctx, loan.LenderID, domain.NotificationLoanApproved,
			"Loan Created", message, loan.ID.String(), domain.RelatedData{
				"amount":        loan.Principal.String(),
				"customer_name": borrowerName,
				"term_months":   fmt.Sprintf("%d", loan.TermMonths),
			})
		if err != nil {
			log.Printf("notifier: loan created notification to lender %s failed: %v", loan.LenderID, err)
		}
	}
}

// OnPaymentApplied notifies the borrower that the payment was processed and
// the lender that it was received. A failure notifying one party does not
// prevent notifying the other.
func (n *Notifier) OnPaymentApplied(ctx context.Context, payment *domain.PaymentRecord, loan *domain.Loan) {
	if loan.BorrowerID != "" {
		message := fmt.Sprintf("Your payment of Rs %s for loan %s has been processed successfully.",
			payment.Amount.StringFixed(2), loan.ID)
		_, err := n.Notify(ctx, loan.BorrowerID, domain.NotificationPaymentReceived,
			"Payment Confirmed", message, loan.ID.String(), domain.RelatedData{
				"amount":      payment.Amount.String(),
				"payment_id":  payment.ID.String(),
				"lender_name": displayName(loan.LenderName, "Unknown Lender"),
			})
		if err != nil {
			log.Printf("notifier: payment confirmation to borrower %s failed: %v", loan.BorrowerID, err)
		}
	}

	if loan.LenderID != "" {
		message := fmt.Sprintf("You've received a payment of Rs %s from %s.",
			payment.Amount.StringFixed(2), displayName(loan.BorrowerName, "a borrower"))
		_, err := n.Notify(ctx, loan.LenderID, domain.NotificationPaymentReceived,
			"Payment Received", message, loan.ID.String(), domain.RelatedData{
				"amount":        payment.Amount.String(),
				"payment_id":    payment.ID.String(),
				"customer_name": displayName(loan.BorrowerName, "a borrower"),
			})
		if err != nil {
			log.Printf("notifier: payment received notification to lender %s failed: %v", loan.LenderID, err)
		}
	}
}

// OnReminderDue notifies the borrower that an installment is due soon
// (daysUntilDue > 0) or overdue (daysUntilDue <= 0). The error return lets
// the reminder scanner count only reminders that were actually written.
func (n *Notifier) OnReminderDue(ctx context.Context, loan *domain.Loan, installment *domain.Installment, daysUntilDue int) error {
	if loan.BorrowerID == "" {
		return nil
	}

	var notifType, title, message string
	if daysUntilDue <= 0 {
		daysOverdue := -daysUntilDue
		notifType = domain.NotificationPaymentOverdue
		title = "Payment Overdue"
		message = fmt.Sprintf("Your payment of Rs %s for loan %s is overdue by %d %s.",
			installment.Amount.StringFixed(2), loan.ID, daysOverdue, pluralDays(daysOverdue))
	} else {
		notifType = domain.NotificationPaymentDue
		title = "Payment Due Soon"
		message = fmt.Sprintf("Your payment of Rs %s for loan %s is due in %d %s.",
			installment.Amount.StringFixed(2), loan.ID, daysUntilDue, pluralDays(daysUntilDue))
	}

	_, err := n.Notify(ctx, loan.BorrowerID, notifType, title, message, loan.ID.String(), domain.RelatedData{
		"amount":      installment.Amount.String(),
		"due_date":    installment.DueDate.UTC().Format(time.RFC3339),
		"lender_name": displayName(loan.LenderName, "Unknown Lender"),
	})
	return err
}

// OnStatusChanged notifies the borrower of an approval or rejection.
func (n *Notifier) OnStatusChanged(ctx context.Context, loan *domain.Loan, status string) {
	if loan.BorrowerID == "" {
		return
	}

	var notifType, title, message string
	switch status {
	case domain.LoanStatusApproved:
		notifType = domain.NotificationLoanApproved
		title = "Loan Approved"
		message = fmt.Sprintf("Your loan of Rs %s from %s has been approved.",
			loan.Principal.StringFixed(2), displayName(loan.LenderName, "Unknown Lender"))
	case domain.LoanStatusRejected:
		notifType = domain.NotificationLoanRejected
		title = "Loan Rejected"
		message = fmt.Sprintf("Your loan request of Rs %s was rejected.",
			loan.Principal.StringFixed(2))
	default:
		return
	}

	_, err := n.Notify(ctx, loan.BorrowerID, notifType, title, message, loan.ID.String(), domain.RelatedData{
		"amount": loan.Principal.String(),
		"status": status,
	})
	if err != nil {
		log.Printf("notifier: status change notification to borrower %s failed: %v", loan.BorrowerID, err)
	}
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
