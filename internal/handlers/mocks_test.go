package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/models"
	"github.com/nightowl-social/nightowl/internal/services"
)

type mockPingService struct {
	CreateFunc             func(ctx context.Context, params services.CreatePingParams) (*models.PingRequest, error)
	GetFunc                func(ctx context.Context, id uuid.UUID) (*models.PingRequest, error)
	ListOpenForFunc        func(ctx context.Context, userID uuid.UUID) ([]models.PingRequest, error)
	RespondFunc            func(ctx context.Context, id, responderID uuid.UUID, decision models.PingDecision, responseText *string) (*models.PingRequest, error)
	CancelFunc             func(ctx context.Context, id, requesterID uuid.UUID) (*models.PingRequest, error)
	ExpireFunc             func(ctx context.Context, id uuid.UUID) (*models.PingRequest, error)
	ListExpiredPendingFunc func(ctx context.Context, limit int) ([]uuid.UUID, error)
}

func (m *mockPingService) Create(ctx context.Context, params services.CreatePingParams) (*models.PingRequest, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &models.PingRequest{}, nil
}

func (m *mockPingService) Get(ctx context.Context, id uuid.UUID) (*models.PingRequest, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &models.PingRequest{}, nil
}

func (m *mockPingService) ListOpenFor(ctx context.Context, userID uuid.UUID) ([]models.PingRequest, error) {
	if m.ListOpenForFunc != nil {
		return m.ListOpenForFunc(ctx, userID)
	}
	return []models.PingRequest{}, nil
}

func (m *mockPingService) Respond(ctx context.Context, id, responderID uuid.UUID, decision models.PingDecision, responseText *string) (*models.PingRequest, error) {
	if m.RespondFunc != nil {
		return m.RespondFunc(ctx, id, responderID, decision, responseText)
	}
	return &models.PingRequest{}, nil
}

func (m *mockPingService) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*models.PingRequest, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id, requesterID)
	}
	return &models.PingRequest{}, nil
}

func (m *mockPingService) Expire(ctx context.Context, id uuid.UUID) (*models.PingRequest, error) {
	if m.ExpireFunc != nil {
		return m.ExpireFunc(ctx, id)
	}
	return &models.PingRequest{}, nil
}

func (m *mockPingService) ListExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if m.ListExpiredPendingFunc != nil {
		return m.ListExpiredPendingFunc(ctx, limit)
	}
	return nil, nil
}

type mockFriendService struct {
	IsAcceptedFriendFunc    func(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
	SharingEnabledFunc      func(ctx context.Context, userID uuid.UUID) (bool, error)
	CurrentLocationFunc     func(ctx context.Context, userID uuid.UUID) (*models.Location, error)
	SendRequestFunc         func(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error)
	AcceptRequestFunc       func(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error)
	DeclineRequestFunc      func(ctx context.Context, userID, friendshipID uuid.UUID) error
	ListFriendsFunc         func(ctx context.Context, userID uuid.UUID) ([]models.FriendWithUser, error)
	ListPendingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
}

func (m *mockFriendService) IsAcceptedFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	if m.IsAcceptedFriendFunc != nil {
		return m.IsAcceptedFriendFunc(ctx, userID, otherUserID)
	}
	return true, nil
}

func (m *mockFriendService) SharingEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	if m.SharingEnabledFunc != nil {
		return m.SharingEnabledFunc(ctx, userID)
	}
	return true, nil
}

func (m *mockFriendService) CurrentLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	if m.CurrentLocationFunc != nil {
		return m.CurrentLocationFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, userID, friendID)
	}
	return &models.Friendship{}, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, userID, friendshipID)
	}
	return &models.Friendship{}, nil
}

func (m *mockFriendService) DeclineRequest(ctx context.Context, userID, friendshipID uuid.UUID) error {
	if m.DeclineRequestFunc != nil {
		return m.DeclineRequestFunc(ctx, userID, friendshipID)
	}
	return nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithUser, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return []models.FriendWithUser{}, nil
}

func (m *mockFriendService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	if m.ListPendingRequestsFunc != nil {
		return m.ListPendingRequestsFunc(ctx, userID)
	}
	return []models.FriendRequest{}, nil
}

type mockNotificationService struct {
	ListForUserFunc func(ctx context.Context, userID uuid.UUID, params services.NotificationListParams) ([]models.Notification, error)
	MarkReadFunc    func(ctx context.Context, userID, notificationID uuid.UUID) error
}

func (m *mockNotificationService) ListForUser(ctx context.Context, userID uuid.UUID, params services.NotificationListParams) ([]models.Notification, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID, params)
	}
	return []models.Notification{}, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, userID, notificationID)
	}
	return nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Health(ctx context.Context) error {
	return m.err
}

func pendingPing(requesterID, responderID uuid.UUID) *models.PingRequest {
	now := time.Now().UTC()
	return &models.PingRequest{
		ID:          uuid.New(),
		RequesterID: requesterID,
		ResponderID: responderID,
		Kind:        models.PingKindLocationRequest,
		Status:      models.PingStatusPending,
		RequestedAt: now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}
