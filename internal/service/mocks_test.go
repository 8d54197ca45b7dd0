package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/peerlend/loan-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) UpdateLedger(ctx context.Context, loan *domain.Loan, settled *domain.Installment) error {
	args := m.Called(ctx, loan, settled)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateInstallmentStatus(ctx context.Context, loanID uuid.UUID, sequence int, status string) error {
	args := m.Called(ctx, loanID, sequence, status)
	return args.Error(0)
}

func (m *MockLoanRepository) FindActive(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.PaymentRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentRecord), args.Error(1)
}

func (m *MockPaymentRepository) TotalPaid(ctx context.Context, loanID uuid.UUID) (string, error) {
	args := m.Called(ctx, loanID)
	return args.String(0), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) ExistsReminder(ctx context.Context, userID string, loanID string, dueDate time.Time, since time.Time) (bool, error) {
	args := m.Called(ctx, userID, loanID, dueDate, since)
	return args.Bool(0), args.Error(1)
}

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) OnLoanCreated(ctx context.Context, loan *domain.Loan) {
	m.Called(ctx, loan)
}

func (m *MockEventSink) OnPaymentApplied(ctx context.Context, payment *domain.PaymentRecord, loan *domain.Loan) {
	m.Called(ctx, payment, loan)
}

func (m *MockEventSink) OnReminderDue(ctx context.Context, loan *domain.Loan, installment *domain.Installment, daysUntilDue int) error {
	args := m.Called(ctx, loan, installment, daysUntilDue)
	return args.Error(0)
}

func (m *MockEventSink) OnStatusChanged(ctx context.Context, loan *domain.Loan, status string) {
	m.Called(ctx, loan, status)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
