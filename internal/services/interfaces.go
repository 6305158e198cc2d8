package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/models"
)

// FriendGraph is the authorization read side the ping engine consumes.
type FriendGraph interface {
	IsAcceptedFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
	SharingEnabled(ctx context.Context, userID uuid.UUID) (bool, error)
	CurrentLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error)
}

// FriendGraphServiceInterface is the full friendship contract used by handlers.
type FriendGraphServiceInterface interface {
	FriendGraph
	SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error)
	AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error)
	DeclineRequest(ctx context.Context, userID, friendshipID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithUser, error)
	ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
}

// Dispatcher receives a committed transition and fans it out. Emit never
// reports failure to the caller: the state transition is already truth, and
// delivery is retried out of band.
type Dispatcher interface {
	Emit(ctx context.Context, event models.NotificationEvent)
}

// PingServiceInterface is the ping engine contract used by handlers and the
// expiry sweeper.
type PingServiceInterface interface {
	Create(ctx context.Context, params CreatePingParams) (*models.PingRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PingRequest, error)
	ListOpenFor(ctx context.Context, userID uuid.UUID) ([]models.PingRequest, error)
	Respond(ctx context.Context, id, responderID uuid.UUID, decision models.PingDecision, responseText *string) (*models.PingRequest, error)
	Cancel(ctx context.Context, id, requesterID uuid.UUID) (*models.PingRequest, error)
	Expire(ctx context.Context, id uuid.UUID) (*models.PingRequest, error)
	ListExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// NotificationServiceInterface is the poll-side contract for clients.
type NotificationServiceInterface interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params NotificationListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
}

// UserDirectory resolves gateway-supplied identities against the local user
// mirror; consumed by the identity middleware.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
