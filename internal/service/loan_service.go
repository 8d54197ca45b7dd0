package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/repository"
	"github.com/peerlend/loan-engine/internal/risk"
	customError "github.com/peerlend/loan-engine/pkg/errors"
)

type LoanService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	events      EventSink
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	events EventSink,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		events:      events,
	}
}

// CreateLoan originates a loan for a lender: validates terms, generates the
// amortization schedule, persists both and emits loan-created notifications.
func (s *LoanService) CreateLoan(ctx context.Context, lenderID, lenderName string, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	if request.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidLoanAmount(request.Principal.String())
	}
	if request.InterestRate.IsNegative() {
		return nil, customError.WrapInvalidInterestRate(request.InterestRate.String())
	}
	if request.TermMonths < 1 {
		return nil, customError.WrapInvalidLoanTerm(request.TermMonths)
	}

	now := time.Now().UTC()
	loanID := uuid.New()

	schedule, err := domain.GenerateSchedule(loanID, request.Principal, request.InterestRate, request.TermMonths, now)
	if err != nil {
		return nil, err
	}
	for _, inst := range schedule {
		inst.CreatedAt = now
	}

	totalAmount := domain.TotalAmount(request.Principal, request.InterestRate)

	loan := &domain.Loan{
		ID:                loanID,
		BorrowerID:        request.BorrowerID,
		LenderID:          lenderID,
		BorrowerName:      request.BorrowerName,
		LenderName:        lenderName,
		Principal:         request.Principal,
		InterestRate:      request.InterestRate,
		TermMonths:        request.TermMonths,
		Purpose:           request.Purpose,
		TotalAmount:       totalAmount,
		InstallmentAmount: schedule[0].Amount,
		TotalPaid:         decimal.Zero,
		RemainingAmount:   totalAmount,
		Status:            domain.LoanStatusPending,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, domain.DaysPerMonth*request.TermMonths),
		Payments:          schedule,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Notifications are best effort; the loan is already committed.
	s.events.OnLoanCreated(ctx, loan)

	return loan, nil
}

// GetLoan fetches a loan visible to the requesting party.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID, userID, role string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if role == "borrower" && loan.BorrowerID != userID {
		return nil, customError.WrapNotAuthorized("You can only view your own loans")
	}
	if role == "lender" && loan.LenderID != userID {
		return nil, customError.WrapNotAuthorized("You can only view loans you've issued")
	}

	return loan, nil
}

// ListLoans returns the loans belonging to the requesting party, optionally
// narrowed by status.
func (s *LoanService) ListLoans(ctx context.Context, userID, role, status string) ([]*domain.Loan, error) {
	filter := domain.LoanFilter{Status: status}
	switch role {
	case "borrower":
		filter.BorrowerID = userID
	case "lender":
		filter.LenderID = userID
	}

	loans, err := s.loanRepo.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return loans, nil
}

// UpdateStatus applies a manual status transition. Allowed moves:
// PENDING -> APPROVED or REJECTED, and APPROVED/ACTIVE -> DEFAULTED.
// COMPLETED, REJECTED and DEFAULTED are terminal. Only the issuing lender
// may change a loan's status.
func (s *LoanService) UpdateStatus(ctx context.Context, loanID uuid.UUID, lenderID, next string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if loan.LenderID != lenderID {
		return nil, customError.WrapNotAuthorized("You can only update loans you've issued")
	}

	if !validTransition(loan.Status, next) {
		return nil, customError.WrapInvalidTransition(loan.Status, next)
	}

	if err := s.loanRepo.UpdateStatus(ctx, loanID, next); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loan.Status = next
	loan.UpdatedAt = time.Now().UTC()

	s.events.OnStatusChanged(ctx, loan, next)

	return loan, nil
}

func validTransition(from, to string) bool {
	switch from {
	case domain.LoanStatusPending:
		return to == domain.LoanStatusApproved || to == domain.LoanStatusRejected
	case domain.LoanStatusApproved, domain.LoanStatusActive:
		return to == domain.LoanStatusDefaulted
	}
	return false
}

// BorrowerSummary aggregates a borrower's loans, upcoming installments and
// recent payments.
func (s *LoanService) BorrowerSummary(ctx context.Context, borrowerID string) (*domain.BorrowerSummary, error) {
	loans, err := s.loanRepo.List(ctx, domain.LoanFilter{BorrowerID: borrowerID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	summary := &domain.BorrowerSummary{
		TotalBorrowed:     decimal.Zero,
		CurrentBalance:    decimal.Zero,
		TotalPaid:         decimal.Zero,
		NextPaymentAmount: decimal.Zero,
		UpcomingPayments:  []*domain.Installment{},
	}

	for _, loan := range loans {
		summary.TotalBorrowed = summary.TotalBorrowed.Add(loan.Principal)
		summary.TotalPaid = summary.TotalPaid.Add(loan.TotalPaid)

		switch loan.Status {
		case domain.LoanStatusActive, domain.LoanStatusApproved:
			summary.ActiveLoans++
			summary.CurrentBalance = summary.CurrentBalance.Add(loan.RemainingAmount)

			for _, inst := range loan.Payments {
				if !inst.Unpaid() {
					continue
				}
				summary.UpcomingPayments = append(summary.UpcomingPayments, inst)
				if summary.NextPaymentDue == nil || inst.DueDate.Before(*summary.NextPaymentDue) {
					due := inst.DueDate
					summary.NextPaymentDue = &due
					summary.NextPaymentAmount = inst.Amount
				}
			}
		case domain.LoanStatusCompleted:
			summary.CompletedLoans++
		}
	}

	recent, err := s.paymentRepo.ListByUser(ctx, borrowerID, 10)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	summary.RecentPayments = recent

	return summary, nil
}

// AssessBorrowerRisk derives risk features from a borrower's loan history
// and runs them through the configured scorer. Only lenders call this.
func (s *LoanService) AssessBorrowerRisk(ctx context.Context, borrowerID string, scorer risk.Scorer) (*risk.Assessment, error) {
	loans, err := s.loanRepo.List(ctx, domain.LoanFilter{BorrowerID: borrowerID})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	features := risk.Features{
		BorrowerID:      borrowerID,
		OutstandingDebt: decimal.Zero,
	}

	for _, loan := range loans {
		switch loan.Status {
		case domain.LoanStatusCompleted:
			features.CompletedLoans++
		case domain.LoanStatusActive, domain.LoanStatusApproved:
			features.OpenLoans++
			features.OutstandingDebt = features.OutstandingDebt.Add(loan.RemainingAmount)
		}

		for _, inst := range loan.Payments {
			switch inst.Status {
			case domain.InstallmentStatusCompleted:
				features.OnTimePayments++
			case domain.InstallmentStatusLate, domain.InstallmentStatusMissed:
				features.LatePayments++
			}
		}
	}

	assessment := scorer.Score(features)
	return &assessment, nil
}
