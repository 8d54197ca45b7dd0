package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peerlend/loan-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, borrower_id, lender_id, borrower_name, lender_name, principal,
	interest_rate, term_months, purpose, total_amount, installment_amount,
	total_paid, remaining_amount, status, start_date, end_date, created_at, updated_at
`

const installmentColumns = `
	id, loan_id, sequence, amount, due_date, status, payment_date, method, created_at
`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.BorrowerID,
		loan.LenderID,
		loan.BorrowerName,
		loan.LenderName,
		loan.Principal,
		loan.InterestRate,
		loan.TermMonths,
		loan.Purpose,
		loan.TotalAmount,
		loan.InstallmentAmount,
		loan.TotalPaid,
		loan.RemainingAmount,
		loan.Status,
		loan.StartDate,
		loan.EndDate,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	instQuery := `
		INSERT INTO loan_installments (` + installmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, inst := range loan.Payments {
		_, err = tx.ExecContext(ctx, instQuery,
			inst.ID,
			inst.LoanID,
			inst.Sequence,
			inst.Amount,
			inst.DueDate,
			inst.Status,
			inst.PaymentDate,
			inst.Method,
			inst.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, err
	}

	if err := r.attachInstallments(ctx, &loan); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE ($1 = '' OR borrower_id = $1)
		  AND ($2 = '' OR lender_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
	`

	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans, query, filter.BorrowerID, filter.LenderID, filter.Status)
	if err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if err := r.attachInstallments(ctx, loan); err != nil {
			return nil, err
		}
	}

	return loans, nil
}

func (r *loanRepository) UpdateLedger(ctx context.Context, loan *domain.Loan, settled *domain.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE loans
		SET total_paid = $2, remaining_amount = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.TotalPaid,
		loan.RemainingAmount,
		loan.Status,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if settled != nil {
		instQuery := `
			UPDATE loan_installments
			SET status = $3, payment_date = $4, method = $5
			WHERE loan_id = $1 AND sequence = $2
		`

		_, err = tx.ExecContext(ctx, instQuery,
			loan.ID,
			settled.Sequence,
			settled.Status,
			settled.PaymentDate,
			settled.Method,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	return err
}

func (r *loanRepository) UpdateInstallmentStatus(ctx context.Context, loanID uuid.UUID, sequence int, status string) error {
	query := `
		UPDATE loan_installments
		SET status = $3
		WHERE loan_id = $1 AND sequence = $2
	`

	_, err := r.db.ExecContext(ctx, query, loanID, sequence, status)
	return err
}

func (r *loanRepository) FindActive(ctx context.Context) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE status IN ('ACTIVE', 'APPROVED')
		ORDER BY created_at
	`

	var loans []*domain.Loan
	if err := r.db.SelectContext(ctx, &loans, query); err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if err := r.attachInstallments(ctx, loan); err != nil {
			return nil, err
		}
	}

	return loans, nil
}

func (r *loanRepository) attachInstallments(ctx context.Context, loan *domain.Loan) error {
	query := `
		SELECT ` + installmentColumns + `
		FROM loan_installments
		WHERE loan_id = $1
		ORDER BY sequence
	`

	return r.db.SelectContext(ctx, &loan.Payments, query, loan.ID)
}
