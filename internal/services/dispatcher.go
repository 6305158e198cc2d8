package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nightowl-social/nightowl/internal/logging"
	"github.com/nightowl-social/nightowl/internal/models"
)

const (
	notifyQueuePrefix = "notify:queue:"
	queuePushTimeout  = 3 * time.Second
	queuePushRetries  = 3
)

// queuePusher is the slice of redis.Client the dispatcher needs.
type queuePusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// NotificationDispatcher turns committed ping transitions into
// at-least-once notification events: a durable row for the poll API, plus a
// push onto the target user's delivery queue for the transport collaborator.
// It runs strictly after the store commit; a dispatch failure is logged and
// retried, never propagated back to the transition.
type NotificationDispatcher struct {
	db       DB
	queue    queuePusher
	async    func(fn func())
	asyncCtx context.Context
}

func NewNotificationDispatcher(db DB, queue queuePusher) *NotificationDispatcher {
	return &NotificationDispatcher{
		db:    db,
		queue: queue,
		async: func(fn func()) {
			go fn()
		},
		asyncCtx: context.Background(),
	}
}

// SetAsync replaces the goroutine scheduler, letting tests run the queue
// push inline.
func (d *NotificationDispatcher) SetAsync(fn func(fn func())) {
	d.async = fn
}

// SetAsyncContext sets the context the background push derives from.
func (d *NotificationDispatcher) SetAsyncContext(ctx context.Context) {
	if ctx == nil {
		d.asyncCtx = context.Background()
		return
	}
	d.asyncCtx = ctx
}

// Emit records the event and schedules delivery. The notification row is
// keyed on (user_id, ping_id, status), so replaying the same transition is a
// no-op on the durable side; consumers of the queue must dedupe on the same
// key since the push may fire more than once.
func (d *NotificationDispatcher) Emit(ctx context.Context, event models.NotificationEvent) {
	if err := d.record(ctx, event); err != nil {
		logging.Error("Failed to record notification", logging.Fields{
			"ping_id": event.PingID.String(),
			"user_id": event.TargetUserID.String(),
			"status":  string(event.Status),
			"error":   err.Error(),
		})
		// Fall through: the queue push still gives the transport a chance.
	}

	d.async(func() {
		d.push(event)
	})
}

func (d *NotificationDispatcher) record(ctx context.Context, event models.NotificationEvent) error {
	_, err := d.db.Exec(ctx,
		`INSERT INTO notifications (user_id, ping_id, status, reason_code)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, ping_id, status) DO NOTHING`,
		event.TargetUserID, event.PingID, event.Status, event.ReasonCode,
	)
	return err
}

func (d *NotificationDispatcher) push(event models.NotificationEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Error("Failed to encode notification event", logging.Fields{
			"ping_id": event.PingID.String(),
			"error":   err.Error(),
		})
		return
	}

	key := queueKey(event.TargetUserID)
	for attempt := 1; attempt <= queuePushRetries; attempt++ {
		ctx, cancel := context.WithTimeout(d.asyncCtx, queuePushTimeout)
		err = d.queue.RPush(ctx, key, payload).Err()
		cancel()
		if err == nil {
			return
		}
		if attempt < queuePushRetries {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}

	logging.Error("Dropping notification push after retries", logging.Fields{
		"ping_id": event.PingID.String(),
		"user_id": event.TargetUserID.String(),
		"status":  string(event.Status),
		"error":   err.Error(),
	})
}

func queueKey(userID uuid.UUID) string {
	return notifyQueuePrefix + userID.String()
}
