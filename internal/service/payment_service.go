package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/repository"
	customError "github.com/peerlend/loan-engine/pkg/errors"
	"github.com/peerlend/loan-engine/pkg/utils"
)

// PaymentService applies payments against a loan's ledger. Writes to the
// same loan are serialized through a per-loan mutex: the update is a
// read-modify-write, not an atomic increment, so two concurrent payments on
// one loan must not interleave.
type PaymentService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	events      EventSink
	idempotency IdempotencyStore

	mu sync.Mutex
	// loanLocks is append-only: one entry per distinct loan paid against,
	// held for the life of the process.
	loanLocks map[uuid.UUID]*sync.Mutex
}

func NewPaymentService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	events EventSink,
	idempotency IdempotencyStore,
) *PaymentService {
	return &PaymentService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		events:      events,
		idempotency: idempotency,
		loanLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *PaymentService) lockLoan(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.loanLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.loanLocks[id] = lock
	}
	return lock
}

// ApplyPayment records a payment from userID against a loan: appends an
// audit PaymentRecord, advances the ledger, settles the first pending
// installment and recomputes the loan status. Notification emission is best
// effort and never rolls back the ledger write.
func (s *PaymentService) ApplyPayment(ctx context.Context, userID string, request *domain.ApplyPaymentRequest) (*domain.PaymentRecord, *domain.Loan, error) {
	if request.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}

	loanID, err := uuid.Parse(request.LoanID)
	if err != nil {
		return nil, nil, customError.WrapLoanNotFound(request.LoanID)
	}

	claimed := false
	if request.IdempotencyKey != "" && s.idempotency != nil {
		ok, err := s.idempotency.Claim(ctx, request.IdempotencyKey)
		if err != nil {
			return nil, nil, customError.WrapCacheError(err)
		}
		if !ok {
			return nil, nil, customError.WrapDuplicatePayment(request.IdempotencyKey)
		}
		claimed = true
	}

	// The key claim only sticks once the ledger write commits. An attempt
	// that fails before then recorded nothing, so the retry carrying the
	// same key must not be treated as a duplicate.
	committed := false
	defer func() {
		if claimed && !committed {
			if err := s.idempotency.Release(ctx, request.IdempotencyKey); err != nil {
				log.Printf("payment: releasing idempotency key %s failed: %v", request.IdempotencyKey, err)
			}
		}
	}()

	lock := s.lockLoan(loanID)
	lock.Lock()
	defer lock.Unlock()

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, customError.WrapLoanNotFound(request.LoanID)
		}
		return nil, nil, customError.WrapDatabaseError(err)
	}

	if loan.IsClosed() {
		return nil, nil, customError.WrapLoanClosed(loan.ID.String(), loan.Status)
	}

	if loan.BorrowerID != userID && loan.LenderID != userID {
		return nil, nil, customError.WrapNotAuthorized("You can only make payments for your own loans")
	}

	now := time.Now().UTC()
	paymentDate := now
	if request.PaymentDate != nil {
		paymentDate = request.PaymentDate.UTC()
	}

	loan.TotalPaid = loan.TotalPaid.Add(request.Amount)
	loan.RemainingAmount = utils.ClampZero(loan.TotalAmount.Sub(loan.TotalPaid))
	loan.UpdatedAt = now

	// First pending installment wins; an overpayment past the end of the
	// schedule is accepted but leaves the schedule untouched.
	settled := loan.FirstPending()
	if settled != nil {
		settled.Status = domain.InstallmentStatusCompleted
		settled.PaymentDate = &paymentDate
		settled.Method = request.Method
	}

	s.applyStatusTransition(loan)

	payment := &domain.PaymentRecord{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		UserID:      userID,
		Amount:      request.Amount,
		Method:      request.Method,
		Status:      domain.PaymentStatusCompleted,
		PaymentDate: paymentDate,
		CreatedAt:   now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	if err := s.loanRepo.UpdateLedger(ctx, loan, settled); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}
	committed = true

	s.events.OnPaymentApplied(ctx, payment, loan)

	return payment, loan, nil
}

// applyStatusTransition implements the automatic part of the loan state
// machine: a fully paid loan completes; a partially paid PENDING or
// APPROVED loan activates. Nothing else changes automatically.
func (s *PaymentService) applyStatusTransition(loan *domain.Loan) {
	if loan.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		loan.Status = domain.LoanStatusCompleted
		return
	}
	if loan.TotalPaid.GreaterThan(decimal.Zero) &&
		(loan.Status == domain.LoanStatusPending || loan.Status == domain.LoanStatusApproved) {
		loan.Status = domain.LoanStatusActive
	}
}

// AuditLoan cross-checks the loan's ledger against the payment audit trail:
// the sum of its PaymentRecord amounts must equal total_paid on the loan.
func (s *PaymentService) AuditLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanAudit, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	recordedStr, err := s.paymentRepo.TotalPaid(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	recorded, err := utils.DecimalFromString(recordedStr)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.LoanAudit{
		LoanID:          loan.ID,
		LedgerTotalPaid: loan.TotalPaid,
		RecordedTotal:   recorded,
		Consistent:      recorded.Equal(loan.TotalPaid),
	}, nil
}

// ListPayments returns the audit records visible to the requesting party.
func (s *PaymentService) ListPayments(ctx context.Context, userID, role, loanID string) ([]*domain.PaymentRecord, error) {
	if loanID != "" {
		id, err := uuid.Parse(loanID)
		if err != nil {
			return nil, customError.WrapLoanNotFound(loanID)
		}

		loan, err := s.loanRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, customError.WrapLoanNotFound(loanID)
			}
			return nil, customError.WrapDatabaseError(err)
		}

		if loan.BorrowerID != userID && loan.LenderID != userID {
			return nil, customError.WrapNotAuthorized("You can only view payments for your own loans")
		}

		payments, err := s.paymentRepo.ListByLoan(ctx, id)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		return payments, nil
	}

	payments, err := s.paymentRepo.ListByUser(ctx, userID, 100)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}
