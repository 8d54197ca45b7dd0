package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peerlend/loan-engine/internal/domain"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, type, title, message, related_id, related_data, timestamp, read
`

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.RelatedID,
		notification.RelatedData,
		notification.Timestamp,
		notification.Read,
	)

	return err
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND ($2 = false OR read = false)
		ORDER BY timestamp DESC
	`

	var notifications []*domain.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, unreadOnly); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, userID string) error {
	query := `
		UPDATE notifications
		SET read = true
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	query := `
		DELETE FROM notifications
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *notificationRepository) ExistsReminder(ctx context.Context, userID string, loanID string, dueDate time.Time, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM notifications
			WHERE user_id = $1
			  AND related_id = $2
			  AND related_data->>'due_date' = $3
			  AND timestamp > $4
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, loanID, dueDate.UTC().Format(time.RFC3339), since)
	if err != nil {
		return false, err
	}

	return exists, nil
}
