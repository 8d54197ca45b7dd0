package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationPaymentDue      = "payment_due"
	NotificationPaymentReceived = "payment_received"
	NotificationPaymentOverdue  = "payment_overdue"
	NotificationLoanApproved    = "loan_approved"
	NotificationLoanRejected    = "loan_rejected"
	NotificationSystemUpdate    = "system_update"
)

// RelatedData is the structured payload attached to a notification. Values
// are pre-stringified so no database-internal identifier ever leaks into the
// stored document.
type RelatedData map[string]string

func (d RelatedData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *RelatedData) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("related_data: unsupported scan type %T", src)
	}
	return json.Unmarshal(b, d)
}

// Notification is a persisted message for a single user. It is written by
// the emitter and mutated only by the recipient marking it read or deleting
// it.
type Notification struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	Type        string      `json:"type" db:"type"`
	Title       string      `json:"title" db:"title"`
	Message     string      `json:"message" db:"message"`
	RelatedID   string      `json:"related_id,omitempty" db:"related_id"`
	RelatedData RelatedData `json:"related_data,omitempty" db:"related_data"`
	Timestamp   time.Time   `json:"timestamp" db:"timestamp"`
	Read        bool        `json:"read" db:"read"`
}
