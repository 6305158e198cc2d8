package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEvent is what the dispatcher hands to the transport layer when
// a ping transition commits. Consumers must treat delivery as idempotent,
// keyed by (PingID, Status): a transient dispatch failure may be retried.
type NotificationEvent struct {
	TargetUserID uuid.UUID  `json:"target_user_id"`
	PingID       uuid.UUID  `json:"ping_id"`
	Status       PingStatus `json:"status"`
	ReasonCode   *string    `json:"reason_code,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Notification is the durable record backing the poll API. ReadAt is nil
// until the client acknowledges it.
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	PingID     uuid.UUID  `json:"ping_id"`
	Status     PingStatus `json:"status"`
	ReasonCode *string    `json:"reason_code,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}
