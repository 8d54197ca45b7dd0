package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peerlend/loan-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `
	id, loan_id, user_id, amount, method, status, payment_date, created_at
`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.UserID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.PaymentDate,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE loan_id = $1
		ORDER BY created_at DESC
	`

	var payments []*domain.PaymentRecord
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var payments []*domain.PaymentRecord
	if err := r.db.SelectContext(ctx, &payments, query, userID, limit); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) TotalPaid(ctx context.Context, loanID uuid.UUID) (string, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payment_records
		WHERE loan_id = $1
	`

	var total string
	if err := r.db.GetContext(ctx, &total, query, loanID); err != nil {
		return "", err
	}

	return total, nil
}
