package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

const defaultNotificationLimit = 50

type NotificationListParams struct {
	Limit      int
	Before     *time.Time
	UnreadOnly bool
}

// NotificationService is the poll-side read model over the dispatcher's
// durable records, for clients that cannot hold a push connection.
type NotificationService struct {
	db DB
}

func NewNotificationService(db DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID, params NotificationListParams) ([]models.Notification, error) {
	limit := params.Limit
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}

	query := `SELECT id, user_id, ping_id, status, reason_code, created_at, read_at
	          FROM notifications
	          WHERE user_id = $1`
	args := []any{userID}

	if params.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	if params.Before != nil {
		args = append(args, *params.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.PingID, &n.Status, &n.ReasonCode, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}

	return notifications, nil
}

// MarkRead is idempotent: acknowledging an already-read notification
// succeeds without touching read_at again.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE notifications
		 SET read_at = COALESCE(read_at, NOW())
		 WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
