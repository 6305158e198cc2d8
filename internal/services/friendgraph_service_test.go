package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nightowl-social/nightowl/internal/models"
)

func friendshipRowValues(id, userID, friendID uuid.UUID, status models.FriendshipStatus) []any {
	now := time.Now()
	return []any{id, userID, friendID, status, now, now}
}

func TestFriendGraphService_IsAcceptedFriend_True(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(true)
		},
	}

	svc := NewFriendGraphService(db)
	ok, err := svc.IsAcceptedFriend(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected friendship to be true")
	}
}

func TestFriendGraphService_IsAcceptedFriend_False(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(false)
		},
	}

	svc := NewFriendGraphService(db)
	ok, err := svc.IsAcceptedFriend(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected friendship to be false")
	}
}

func TestFriendGraphService_SharingEnabled_UnknownUser(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	svc := NewFriendGraphService(db)
	enabled, err := svc.SharingEnabled(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enabled {
		t.Fatal("expected sharing to read false for unknown user")
	}
}

func TestFriendGraphService_SharingEnabled_True(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(true)
		},
	}

	svc := NewFriendGraphService(db)
	enabled, err := svc.SharingEnabled(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !enabled {
		t.Fatal("expected sharing enabled")
	}
}

func TestFriendGraphService_CurrentLocation_None(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	svc := NewFriendGraphService(db)
	loc, err := svc.CurrentLocation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != nil {
		t.Fatalf("expected nil location, got %+v", loc)
	}
}

func TestFriendGraphService_CurrentLocation_Returns(t *testing.T) {
	asOf := time.Now()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(40.7128, -74.0060, asOf)
		},
	}

	svc := NewFriendGraphService(db)
	loc, err := svc.CurrentLocation(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil || loc.Latitude != 40.7128 || loc.Longitude != -74.0060 {
		t.Fatalf("unexpected location: %+v", loc)
	}
}

func TestFriendGraphService_SendRequest_Self(t *testing.T) {
	svc := &FriendGraphService{}
	userID := uuid.New()
	_, err := svc.SendRequest(context.Background(), userID, userID)
	if !errors.Is(err, ErrCannotFriendSelf) {
		t.Fatalf("expected ErrCannotFriendSelf, got %v", err)
	}
}

func TestFriendGraphService_SendRequest_AlreadyExists(t *testing.T) {
	calls := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			calls++
			return rowFromValues(true)
		},
	}

	svc := NewFriendGraphService(db)
	_, err := svc.SendRequest(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected ErrFriendshipExists, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single existence check, got %d", calls)
	}
}

func TestFriendGraphService_SendRequest_DeclinedEdgeBlocksRetry(t *testing.T) {
	// The existence check is status-blind, so a declined edge still counts.
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(true)
		},
	}

	svc := NewFriendGraphService(db)
	_, err := svc.SendRequest(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected ErrFriendshipExists, got %v", err)
	}
}

func TestFriendGraphService_SendRequest_Success(t *testing.T) {
	userID := uuid.New()
	friendID := uuid.New()
	friendshipID := uuid.New()
	call := 0
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			call++
			if call == 1 {
				return rowFromValues(false)
			}
			return rowFromValues(friendshipRowValues(friendshipID, userID, friendID, models.FriendshipStatusPending)...)
		},
	}

	svc := NewFriendGraphService(db)
	friendship, err := svc.SendRequest(context.Background(), userID, friendID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friendship.ID != friendshipID {
		t.Fatalf("expected friendship %v, got %v", friendshipID, friendship.ID)
	}
	if friendship.Status != models.FriendshipStatusPending {
		t.Fatalf("expected pending, got %s", friendship.Status)
	}
}

func TestFriendGraphService_AcceptRequest_NotRecipient(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), uuid.New(), models.FriendshipStatusPending)...)
		},
	}

	svc := NewFriendGraphService(db)
	_, err := svc.AcceptRequest(context.Background(), userID, friendshipID)
	if !errors.Is(err, ErrNotFriendshipRecipient) {
		t.Fatalf("expected ErrNotFriendshipRecipient, got %v", err)
	}
}

func TestFriendGraphService_AcceptRequest_NotPending(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), userID, models.FriendshipStatusDeclined)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			t.Fatal("unexpected exec on non-pending friendship")
			return fakeCommandTag{}, nil
		},
	}

	svc := NewFriendGraphService(db)
	_, err := svc.AcceptRequest(context.Background(), userID, friendshipID)
	if !errors.Is(err, ErrFriendshipNotPending) {
		t.Fatalf("expected ErrFriendshipNotPending, got %v", err)
	}
}

func TestFriendGraphService_AcceptRequest_Success(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	var tx *fakeTx
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), userID, models.FriendshipStatusPending)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}
	db.BeginFunc = func(ctx context.Context) (Tx, error) {
		tx = &fakeTx{fakeDB: db}
		return tx, nil
	}

	svc := NewFriendGraphService(db)
	friendship, err := svc.AcceptRequest(context.Background(), userID, friendshipID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if friendship.Status != models.FriendshipStatusAccepted {
		t.Fatalf("expected accepted status, got %s", friendship.Status)
	}
	if tx.commits != 1 {
		t.Fatalf("expected 1 commit, got %d", tx.commits)
	}
	if tx.rollbacks != 0 {
		t.Fatalf("expected no rollback, got %d", tx.rollbacks)
	}
}

func TestFriendGraphService_AcceptRequest_RollsBackOnFailure(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	var tx *fakeTx
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), userID, models.FriendshipStatusPending)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return nil, errors.New("boom")
		},
	}
	db.BeginFunc = func(ctx context.Context) (Tx, error) {
		tx = &fakeTx{fakeDB: db}
		return tx, nil
	}

	svc := NewFriendGraphService(db)
	_, err := svc.AcceptRequest(context.Background(), userID, friendshipID)
	if err == nil {
		t.Fatal("expected error")
	}
	if tx.rollbacks != 1 {
		t.Fatalf("expected rollback, got %d", tx.rollbacks)
	}
}

func TestFriendGraphService_DeclineRequest_NotRecipient(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), uuid.New(), models.FriendshipStatusPending)...)
		},
	}

	svc := NewFriendGraphService(db)
	err := svc.DeclineRequest(context.Background(), userID, friendshipID)
	if !errors.Is(err, ErrNotFriendshipRecipient) {
		t.Fatalf("expected ErrNotFriendshipRecipient, got %v", err)
	}
}

func TestFriendGraphService_DeclineRequest_Success(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), userID, models.FriendshipStatusPending)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 1}, nil
		},
	}

	svc := NewFriendGraphService(db)
	if err := svc.DeclineRequest(context.Background(), userID, friendshipID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFriendGraphService_DeclineRequest_LostRace(t *testing.T) {
	friendshipID := uuid.New()
	userID := uuid.New()
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return rowFromValues(friendshipRowValues(friendshipID, uuid.New(), userID, models.FriendshipStatusPending)...)
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (CommandTag, error) {
			return fakeCommandTag{rowsAffected: 0}, nil
		},
	}

	svc := NewFriendGraphService(db)
	err := svc.DeclineRequest(context.Background(), userID, friendshipID)
	if !errors.Is(err, ErrFriendshipNotPending) {
		t.Fatalf("expected ErrFriendshipNotPending, got %v", err)
	}
}

func TestFriendGraphService_ListFriends_Empty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{rows: [][]any{}}, nil
		},
	}

	svc := NewFriendGraphService(db)
	friends, err := svc.ListFriends(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 0 {
		t.Fatalf("expected 0 friends, got %d", len(friends))
	}
}

func TestFriendGraphService_ListFriends_ReturnsRows(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{rows: [][]any{
				{uuid.New(), userID, uuid.New(), models.FriendshipStatusAccepted, now, now, "casey"},
			}}, nil
		},
	}

	svc := NewFriendGraphService(db)
	friends, err := svc.ListFriends(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 1 {
		t.Fatalf("expected 1 friend, got %d", len(friends))
	}
	if friends[0].FriendUsername != "casey" {
		t.Fatalf("unexpected friend: %+v", friends[0])
	}
}

func TestFriendGraphService_ListPendingRequests_ReturnsRows(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{rows: [][]any{
				{uuid.New(), uuid.New(), userID, models.FriendshipStatusPending, now, now, "riley"},
			}}, nil
		},
	}

	svc := NewFriendGraphService(db)
	requests, err := svc.ListPendingRequests(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].RequesterUsername != "riley" {
		t.Fatalf("unexpected request: %+v", requests[0])
	}
}

func TestFriendGraphService_GetByID_NotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	svc := NewFriendGraphService(db)
	_, err := svc.getByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrFriendshipNotFound) {
		t.Fatalf("expected ErrFriendshipNotFound, got %v", err)
	}
}
