package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidLoanAmount    = errors.New("invalid loan amount")
	ErrInvalidInterestRate  = errors.New("invalid interest rate")
	ErrInvalidLoanTerm      = errors.New("invalid loan term")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrLoanClosed           = errors.New("loan is closed")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDuplicatePayment     = errors.New("duplicate payment submission")
	ErrNotAuthorized        = errors.New("not authorized")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidLoanAmount    = "INVALID_LOAN_AMOUNT"
	ErrCodeInvalidInterestRate  = "INVALID_INTEREST_RATE"
	ErrCodeInvalidLoanTerm      = "INVALID_LOAN_TERM"
	ErrCodeInvalidPaymentAmount = "INVALID_PAYMENT_AMOUNT"
	ErrCodeLoanClosed           = "LOAN_CLOSED"
	ErrCodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	ErrCodeDuplicatePayment     = "DUPLICATE_PAYMENT"
	ErrCodeNotAuthorized        = "NOT_AUTHORIZED"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapNotificationNotFound(notificationID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotificationNotFound,
		fmt.Sprintf("Notification with ID %s not found", notificationID),
		ErrNotificationNotFound,
	)
}

func WrapInvalidLoanAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanAmount,
		fmt.Sprintf("Loan principal must be greater than zero, got %s", amount),
		ErrInvalidLoanAmount,
	)
}

func WrapInvalidInterestRate(rate string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidInterestRate,
		fmt.Sprintf("Interest rate must not be negative, got %s", rate),
		ErrInvalidInterestRate,
	)
}

func WrapInvalidLoanTerm(termMonths int) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerm,
		fmt.Sprintf("Loan term must be at least 1 month, got %d", termMonths),
		ErrInvalidLoanTerm,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Payment amount must be greater than zero, got %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapLoanClosed(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanClosed,
		fmt.Sprintf("Loan %s is %s and no longer accepts payments", loanID, status),
		ErrLoanClosed,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot change loan status from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapDuplicatePayment(key string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePayment,
		fmt.Sprintf("Payment with idempotency key %s was already submitted", key),
		ErrDuplicatePayment,
	)
}

func WrapNotAuthorized(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotAuthorized,
		reason,
		ErrNotAuthorized,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"Database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
