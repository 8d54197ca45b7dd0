package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/peerlend/loan-engine/internal/domain"
	customError "github.com/peerlend/loan-engine/pkg/errors"
)

func newTestLoan(borrowerID string, principal, rate int64, termMonths int) *domain.Loan {
	loanID := uuid.New()
	now := time.Now().UTC()

	schedule, err := domain.GenerateSchedule(loanID, decimal.NewFromInt(principal), decimal.NewFromInt(rate), termMonths, now)
	if err != nil {
		panic(err)
	}

	total := domain.TotalAmount(decimal.NewFromInt(principal), decimal.NewFromInt(rate))

	return &domain.Loan{
		ID:                loanID,
		BorrowerID:        borrowerID,
		LenderID:          "lender-1",
		Principal:         decimal.NewFromInt(principal),
		InterestRate:      decimal.NewFromInt(rate),
		TermMonths:        termMonths,
		TotalAmount:       total,
		InstallmentAmount: schedule[0].Amount,
		TotalPaid:         decimal.Zero,
		RemainingAmount:   total,
		Status:            domain.LoanStatusPending,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, domain.DaysPerMonth*termMonths),
		Payments:          schedule,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func newPaymentService(loanRepo *MockLoanRepository, paymentRepo *MockPaymentRepository, events EventSink, idem IdempotencyStore) *PaymentService {
	return NewPaymentService(loanRepo, paymentRepo, events, idem)
}

func TestApplyPaymentFullLifecycle(t *testing.T) {
	loan := newTestLoan("borrower-1", 10000, 10, 5)

	assert.True(t, loan.TotalAmount.Equal(decimal.NewFromInt(11000)))
	assert.True(t, loan.InstallmentAmount.Equal(decimal.NewFromInt(2200)))
	assert.Equal(t, domain.LoanStatusPending, loan.Status)

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockLoanRepo.On("UpdateLedger", mock.Anything, loan, mock.Anything).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockEvents.On("OnPaymentApplied", mock.Anything, mock.Anything, loan).Return()

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

	// First payment activates the loan and settles installment 1.
	payment, updated, err := svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
		LoanID: loan.ID.String(),
		Amount: decimal.NewFromInt(2200),
		Method: domain.PaymentMethodBankTransfer,
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.True(t, updated.TotalPaid.Equal(decimal.NewFromInt(2200)))
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(8800)))
	assert.Equal(t, domain.LoanStatusActive, updated.Status)
	assert.Equal(t, domain.InstallmentStatusCompleted, updated.Payments[0].Status)
	assert.Equal(t, domain.PaymentMethodBankTransfer, updated.Payments[0].Method)
	assert.NotNil(t, updated.Payments[0].PaymentDate)

	// Four more payments complete the loan.
	for i := 0; i < 4; i++ {
		_, updated, err = svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
			LoanID: loan.ID.String(),
			Amount: decimal.NewFromInt(2200),
			Method: domain.PaymentMethodBankTransfer,
		})
		assert.NoError(t, err)
	}

	assert.True(t, updated.RemainingAmount.IsZero())
	assert.Equal(t, domain.LoanStatusCompleted, updated.Status)
	for _, inst := range updated.Payments {
		assert.Equal(t, domain.InstallmentStatusCompleted, inst.Status)
	}

	// A sixth payment is rejected: the loan is closed.
	_, _, err = svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
		LoanID: loan.ID.String(),
		Amount: decimal.NewFromInt(100),
		Method: domain.PaymentMethodCash,
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrLoanClosed))
	assert.Equal(t, domain.LoanStatusCompleted, updated.Status, "terminal status never regresses")

	mockEvents.AssertNumberOfCalls(t, "OnPaymentApplied", 5)
}

func TestApplyPaymentBalanceNeverNegative(t *testing.T) {
	loan := newTestLoan("borrower-1", 1000, 0, 2)
	loan.Status = domain.LoanStatusApproved

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockLoanRepo.On("UpdateLedger", mock.Anything, loan, mock.Anything).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockEvents.On("OnPaymentApplied", mock.Anything, mock.Anything, loan).Return()

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

	// A single payment far exceeding the total clamps remaining at zero.
	_, updated, err := svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
		LoanID: loan.ID.String(),
		Amount: decimal.NewFromInt(99999),
		Method: domain.PaymentMethodCash,
	})
	assert.NoError(t, err)
	assert.True(t, updated.RemainingAmount.IsZero())
	assert.False(t, updated.RemainingAmount.IsNegative())
	assert.Equal(t, domain.LoanStatusCompleted, updated.Status)
}

func TestApplyPaymentFlipsExactlyOneInstallment(t *testing.T) {
	loan := newTestLoan("borrower-1", 9000, 0, 3)
	loan.Status = domain.LoanStatusApproved

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockLoanRepo.On("UpdateLedger", mock.Anything, loan, mock.MatchedBy(func(settled *domain.Installment) bool {
		return settled != nil && settled.Sequence == 1
	})).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockEvents.On("OnPaymentApplied", mock.Anything, mock.Anything, loan).Return()

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

	// An odd partial amount still settles exactly the first installment.
	_, updated, err := svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
		LoanID: loan.ID.String(),
		Amount: decimal.NewFromInt(17),
		Method: domain.PaymentMethodCard,
	})
	assert.NoError(t, err)

	completed := 0
	for _, inst := range updated.Payments {
		if inst.Status == domain.InstallmentStatusCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, domain.InstallmentStatusCompleted, updated.Payments[0].Status)
	assert.Equal(t, domain.InstallmentStatusPending, updated.Payments[1].Status)
}

func TestApplyPaymentValidation(t *testing.T) {
	loan := newTestLoan("borrower-1", 1000, 5, 2)

	tests := []struct {
		name        string
		userID      string
		request     *domain.ApplyPaymentRequest
		setupMocks  func(*MockLoanRepository)
		expectedErr error
	}{
		{
			name:   "Zero amount rejected before any lookup",
			userID: "borrower-1",
			request: &domain.ApplyPaymentRequest{
				LoanID: loan.ID.String(),
				Amount: decimal.Zero,
				Method: domain.PaymentMethodCash,
			},
			setupMocks:  func(m *MockLoanRepository) {},
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:   "Negative amount rejected",
			userID: "borrower-1",
			request: &domain.ApplyPaymentRequest{
				LoanID: loan.ID.String(),
				Amount: decimal.NewFromInt(-50),
				Method: domain.PaymentMethodCash,
			},
			setupMocks:  func(m *MockLoanRepository) {},
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:   "Malformed loan id",
			userID: "borrower-1",
			request: &domain.ApplyPaymentRequest{
				LoanID: "not-a-uuid",
				Amount: decimal.NewFromInt(100),
				Method: domain.PaymentMethodCash,
			},
			setupMocks:  func(m *MockLoanRepository) {},
			expectedErr: customError.ErrLoanNotFound,
		},
		{
			name:   "Stranger cannot pay",
			userID: "somebody-else",
			request: &domain.ApplyPaymentRequest{
				LoanID: loan.ID.String(),
				Amount: decimal.NewFromInt(100),
				Method: domain.PaymentMethodCash,
			},
			setupMocks: func(m *MockLoanRepository) {
				m.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
			},
			expectedErr: customError.ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLoanRepo := &MockLoanRepository{}
			mockPaymentRepo := &MockPaymentRepository{}
			mockEvents := &MockEventSink{}
			tt.setupMocks(mockLoanRepo)

			svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

			_, _, err := svc.ApplyPayment(context.Background(), tt.userID, tt.request)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectedErr), "expected %v, got %v", tt.expectedErr, err)

			mockPaymentRepo.AssertNotCalled(t, "Create")
			mockLoanRepo.AssertNotCalled(t, "UpdateLedger")
		})
	}
}

func TestApplyPaymentIdempotencyKey(t *testing.T) {
	loan := newTestLoan("borrower-1", 1000, 0, 2)
	loan.Status = domain.LoanStatusApproved

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}
	mockIdem := &MockIdempotencyStore{}

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockLoanRepo.On("UpdateLedger", mock.Anything, loan, mock.Anything).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockEvents.On("OnPaymentApplied", mock.Anything, mock.Anything, loan).Return()

	mockIdem.On("Claim", mock.Anything, "key-1").Return(true, nil).Once()
	mockIdem.On("Claim", mock.Anything, "key-1").Return(false, nil).Once()

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, mockIdem)

	request := &domain.ApplyPaymentRequest{
		LoanID:         loan.ID.String(),
		Amount:         decimal.NewFromInt(500),
		Method:         domain.PaymentMethodCard,
		IdempotencyKey: "key-1",
	}

	_, _, err := svc.ApplyPayment(context.Background(), "borrower-1", request)
	assert.NoError(t, err)

	// The retry with the same key is rejected without touching the ledger.
	_, _, err = svc.ApplyPayment(context.Background(), "borrower-1", request)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrDuplicatePayment))

	mockPaymentRepo.AssertNumberOfCalls(t, "Create", 1)
	mockLoanRepo.AssertNumberOfCalls(t, "UpdateLedger", 1)
}

func TestApplyPaymentIdempotencyKeyReleasedOnFailure(t *testing.T) {
	// Each attempt fetches the loan fresh, as the real repository would.
	attempt1 := newTestLoan("borrower-1", 1000, 0, 2)
	attempt1.Status = domain.LoanStatusApproved
	attempt2 := newTestLoan("borrower-1", 1000, 0, 2)
	attempt2.ID = attempt1.ID
	attempt2.Status = domain.LoanStatusApproved

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}
	mockIdem := &MockIdempotencyStore{}

	mockLoanRepo.On("GetByID", mock.Anything, attempt1.ID).Return(attempt1, nil).Once()
	mockLoanRepo.On("GetByID", mock.Anything, attempt1.ID).Return(attempt2, nil).Once()
	mockLoanRepo.On("UpdateLedger", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	mockEvents.On("OnPaymentApplied", mock.Anything, mock.Anything, mock.Anything).Return()

	mockIdem.On("Claim", mock.Anything, "key-1").Return(true, nil).Twice()
	mockIdem.On("Release", mock.Anything, "key-1").Return(nil).Once()

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, mockIdem)

	request := &domain.ApplyPaymentRequest{
		LoanID:         attempt1.ID.String(),
		Amount:         decimal.NewFromInt(500),
		Method:         domain.PaymentMethodCard,
		IdempotencyKey: "key-1",
	}

	// The first attempt dies at the audit write. Its key claim is rolled
	// back, so the retry with the same key is not a duplicate.
	_, _, err := svc.ApplyPayment(context.Background(), "borrower-1", request)
	assert.Error(t, err)
	var bizErr *customError.BusinessError
	assert.True(t, errors.As(err, &bizErr))
	assert.Equal(t, customError.ErrCodeDatabaseError, bizErr.Code)

	_, updated, err := svc.ApplyPayment(context.Background(), "borrower-1", request)
	assert.NoError(t, err)
	assert.True(t, updated.TotalPaid.Equal(decimal.NewFromInt(500)))

	mockIdem.AssertExpectations(t)
	mockLoanRepo.AssertNumberOfCalls(t, "UpdateLedger", 1)
}

func TestAuditLoan(t *testing.T) {
	tests := []struct {
		name       string
		ledger     int64
		recorded   string
		consistent bool
	}{
		{name: "Ledger matches audit trail", ledger: 4400, recorded: "4400.00", consistent: true},
		{name: "Ledger ahead of audit trail", ledger: 4400, recorded: "2200.00", consistent: false},
		{name: "No payments recorded yet", ledger: 0, recorded: "0", consistent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newTestLoan("borrower-1", 10000, 10, 5)
			loan.TotalPaid = decimal.NewFromInt(tt.ledger)

			mockLoanRepo := &MockLoanRepository{}
			mockPaymentRepo := &MockPaymentRepository{}
			mockEvents := &MockEventSink{}

			mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
			mockPaymentRepo.On("TotalPaid", mock.Anything, loan.ID).Return(tt.recorded, nil)

			svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

			audit, err := svc.AuditLoan(context.Background(), loan.ID)
			assert.NoError(t, err)
			assert.Equal(t, loan.ID, audit.LoanID)
			assert.True(t, audit.LedgerTotalPaid.Equal(decimal.NewFromInt(tt.ledger)))
			assert.Equal(t, tt.consistent, audit.Consistent)
		})
	}
}

func TestAuditLoanNotFound(t *testing.T) {
	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}
	mockEvents := &MockEventSink{}

	missing := uuid.New()
	mockLoanRepo.On("GetByID", mock.Anything, missing).Return(nil, sql.ErrNoRows)

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, mockEvents, nil)

	_, err := svc.AuditLoan(context.Background(), missing)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrLoanNotFound))
	mockPaymentRepo.AssertNotCalled(t, "TotalPaid")
}

func TestApplyPaymentEmissionFailureDoesNotRollBack(t *testing.T) {
	loan := newTestLoan("borrower-1", 1000, 0, 2)
	loan.Status = domain.LoanStatusApproved

	mockLoanRepo := &MockLoanRepository{}
	mockPaymentRepo := &MockPaymentRepository{}

	mockLoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	mockLoanRepo.On("UpdateLedger", mock.Anything, loan, mock.Anything).Return(nil)
	mockPaymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	// A notifier whose repository always fails still must not surface an
	// error to the payer.
	failingRepo := &MockNotificationRepository{}
	failingRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("notification store down"))

	svc := newPaymentService(mockLoanRepo, mockPaymentRepo, NewNotifier(failingRepo), nil)

	_, updated, err := svc.ApplyPayment(context.Background(), "borrower-1", &domain.ApplyPaymentRequest{
		LoanID: loan.ID.String(),
		Amount: decimal.NewFromInt(500),
		Method: domain.PaymentMethodCash,
	})
	assert.NoError(t, err)
	assert.True(t, updated.TotalPaid.Equal(decimal.NewFromInt(500)))
}
