package service

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/repository"
	customError "github.com/peerlend/loan-engine/pkg/errors"
	"github.com/peerlend/loan-engine/pkg/utils"
)

// ReminderWindow bounds the idempotency lookback: a reminder for the same
// installment is suppressed if one was already emitted within this window.
const ReminderWindow = 24 * time.Hour

// ReminderService scans active loans for installments crossing the one-day
// due or overdue boundary and emits at most one reminder per installment per
// window.
type ReminderService struct {
	loanRepo         repository.LoanRepository
	notificationRepo repository.NotificationRepository
	events           EventSink

	running int32
}

func NewReminderService(
	loanRepo repository.LoanRepository,
	notificationRepo repository.NotificationRepository,
	events EventSink,
) *ReminderService {
	return &ReminderService{
		loanRepo:         loanRepo,
		notificationRepo: notificationRepo,
		events:           events,
	}
}

// ScanAndNotify sweeps all ACTIVE and APPROVED loans and returns the number
// of reminders sent. One scan completes before the next begins: an
// invocation overlapping a running scan returns immediately with zero. A
// single loan's failure is logged and skipped; it never halts the sweep.
func (s *ReminderService) ScanAndNotify(ctx context.Context, now time.Time) (int, error) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		log.Println("reminder: scan already in progress, skipping")
		return 0, nil
	}
	defer atomic.StoreInt32(&s.running, 0)

	loans, err := s.loanRepo.FindActive(ctx)
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}

	sent := 0
	for _, loan := range loans {
		n, err := s.scanLoan(ctx, loan, now)
		if err != nil {
			log.Printf("reminder: loan %s skipped: %v", loan.ID, err)
			continue
		}
		sent += n
	}

	return sent, nil
}

func (s *ReminderService) scanLoan(ctx context.Context, loan *domain.Loan, now time.Time) (int, error) {
	sent := 0

	for _, inst := range loan.Payments {
		if inst.Status != domain.InstallmentStatusPending {
			continue
		}
		if inst.DueDate.IsZero() {
			continue
		}

		daysUntilDue := utils.DaysUntil(now, inst.DueDate)
		if daysUntilDue != 1 && daysUntilDue != -1 {
			continue
		}

		exists, err := s.notificationRepo.ExistsReminder(ctx, loan.BorrowerID, loan.ID.String(), inst.DueDate, now.Add(-ReminderWindow))
		if err != nil {
			return sent, err
		}
		if exists {
			continue
		}

		if err := s.events.OnReminderDue(ctx, loan, inst, daysUntilDue); err != nil {
			return sent, err
		}
		sent++
		log.Printf("reminder: sent payment reminder for loan %s, due in %d days", loan.ID, daysUntilDue)

		// An installment one day past due is marked LATE so that overdue
		// state survives the reminder window.
		if daysUntilDue == -1 {
			if err := s.loanRepo.UpdateInstallmentStatus(ctx, loan.ID, inst.Sequence, domain.InstallmentStatusLate); err != nil {
				return sent, err
			}
		}
	}

	return sent, nil
}
