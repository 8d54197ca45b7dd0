package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/peerlend/loan-engine/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// TotalAmount computes principal plus simple interest:
// principal + principal*rate/100. The rate is a percentage (10 means 10%).
func TotalAmount(principal, interestRate decimal.Decimal) decimal.Decimal {
	interest := principal.Mul(interestRate).Div(oneHundred)
	return principal.Add(interest)
}

// GenerateSchedule builds the amortization schedule for a loan: termMonths
// equal installments of total/term (rounded to 2 places), due every 30 days
// after startDate. The rounding remainder is not folded into the final
// installment, so the schedule sum may drift from the total by a fraction of
// a cent; callers compare with a one-cent tolerance.
//
// Pure and deterministic: no I/O, same inputs always yield the same schedule
// apart from generated row IDs.
func GenerateSchedule(loanID uuid.UUID, principal, interestRate decimal.Decimal, termMonths int, startDate time.Time) ([]*Installment, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidLoanAmount(principal.String())
	}
	if interestRate.IsNegative() {
		return nil, customError.WrapInvalidInterestRate(interestRate.String())
	}
	if termMonths < 1 {
		return nil, customError.WrapInvalidLoanTerm(termMonths)
	}

	total := TotalAmount(principal, interestRate)
	installmentAmount := total.Div(decimal.NewFromInt(int64(termMonths))).Round(2)

	schedule := make([]*Installment, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		schedule = append(schedule, &Installment{
			ID:       uuid.New(),
			LoanID:   loanID,
			Sequence: i,
			Amount:   installmentAmount,
			DueDate:  startDate.AddDate(0, 0, DaysPerMonth*i),
			Status:   InstallmentStatusPending,
		})
	}

	return schedule, nil
}
