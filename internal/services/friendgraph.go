package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nightowl-social/nightowl/internal/models"
)

var (
	ErrFriendshipNotFound     = errors.New("friendship not found")
	ErrFriendshipExists       = errors.New("friendship already exists")
	ErrCannotFriendSelf       = errors.New("cannot send friend request to yourself")
	ErrFriendshipNotPending   = errors.New("friendship is not pending")
	ErrNotFriendshipRecipient = errors.New("only the recipient can accept or decline")
)

// FriendGraphService owns the undirected friendship relation. The ping
// engine only consumes its read side (IsAcceptedFriend, SharingEnabled,
// CurrentLocation); the write side maintains the edges themselves.
type FriendGraphService struct {
	db DB
}

func NewFriendGraphService(db DB) *FriendGraphService {
	return &FriendGraphService{db: db}
}

// IsAcceptedFriend reports whether an accepted edge exists between the two
// users, in either direction. Unknown identities simply yield false.
func (s *FriendGraphService) IsAcceptedFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	var isFriend bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE ((user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1))
			  AND status = 'accepted'
		)`,
		userID, otherUserID,
	).Scan(&isFriend)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return isFriend, nil
}

// SharingEnabled reports whether the user currently allows friends to see
// their location. Unknown users read as false rather than an error so that
// callers uniformly reject.
func (s *FriendGraphService) SharingEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(ctx,
		"SELECT location_sharing_enabled FROM users WHERE id = $1",
		userID,
	).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking sharing preference: %w", err)
	}
	return enabled, nil
}

// CurrentLocation returns the user's last reported position, or nil when the
// user is unknown, has sharing off, or never reported one.
func (s *FriendGraphService) CurrentLocation(ctx context.Context, userID uuid.UUID) (*models.Location, error) {
	loc := &models.Location{}
	err := s.db.QueryRow(ctx,
		`SELECT last_location_lat, last_location_lng, location_updated_at
		 FROM users
		 WHERE id = $1
		   AND location_sharing_enabled = true
		   AND last_location_lat IS NOT NULL`,
		userID,
	).Scan(&loc.Latitude, &loc.Longitude, &loc.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

func (s *FriendGraphService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error) {
	if userID == friendID {
		return nil, ErrCannotFriendSelf
	}

	// One edge per unordered pair, regardless of status: declined edges are
	// history, not an invitation to retry through a duplicate row.
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_id = $1 AND friend_id = $2)
			   OR (user_id = $2 AND friend_id = $1)
		)`,
		userID, friendID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking friendship existence: %w", err)
	}
	if exists {
		return nil, ErrFriendshipExists
	}

	friendship := &models.Friendship{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO friendships (user_id, friend_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, user_id, friend_id, status, created_at, updated_at`,
		userID, friendID,
	).Scan(&friendship.ID, &friendship.UserID, &friendship.FriendID, &friendship.Status, &friendship.CreatedAt, &friendship.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFriendshipExists
		}
		return nil, fmt.Errorf("creating friendship: %w", err)
	}

	return friendship, nil
}

func (s *FriendGraphService) AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	friendship := &models.Friendship{}
	err = tx.QueryRow(ctx,
		`SELECT id, user_id, friend_id, status, created_at, updated_at
		 FROM friendships WHERE id = $1
		 FOR UPDATE`,
		friendshipID,
	).Scan(&friendship.ID, &friendship.UserID, &friendship.FriendID, &friendship.Status, &friendship.CreatedAt, &friendship.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendshipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading friendship: %w", err)
	}

	// Only the recipient (friend_id) can accept.
	if friendship.FriendID != userID {
		return nil, ErrNotFriendshipRecipient
	}
	if friendship.Status != models.FriendshipStatusPending {
		return nil, ErrFriendshipNotPending
	}

	_, err = tx.Exec(ctx,
		"UPDATE friendships SET status = 'accepted', updated_at = NOW() WHERE id = $1",
		friendshipID,
	)
	if err != nil {
		return nil, fmt.Errorf("accepting friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept: %w", err)
	}
	committed = true

	friendship.Status = models.FriendshipStatusAccepted
	return friendship, nil
}

// DeclineRequest flips a pending edge to declined. The row is kept as soft
// history; the pair cannot re-request through a duplicate edge.
func (s *FriendGraphService) DeclineRequest(ctx context.Context, userID, friendshipID uuid.UUID) error {
	friendship, err := s.getByID(ctx, friendshipID)
	if err != nil {
		return err
	}

	if friendship.FriendID != userID {
		return ErrNotFriendshipRecipient
	}
	if friendship.Status != models.FriendshipStatusPending {
		return ErrFriendshipNotPending
	}

	result, err := s.db.Exec(ctx,
		`UPDATE friendships SET status = 'declined', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'`,
		friendshipID,
	)
	if err != nil {
		return fmt.Errorf("declining friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFriendshipNotPending
	}

	return nil
}

func (s *FriendGraphService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at, f.updated_at,
		        CASE WHEN f.user_id = $1 THEN u2.username ELSE u1.username END
		 FROM friendships f
		 JOIN users u1 ON f.user_id = u1.id
		 JOIN users u2 ON f.friend_id = u2.id
		 WHERE (f.user_id = $1 OR f.friend_id = $1) AND f.status = 'accepted'
		 ORDER BY CASE WHEN f.user_id = $1 THEN u2.username ELSE u1.username END`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	var friends []models.FriendWithUser
	for rows.Next() {
		var f models.FriendWithUser
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt, &f.FriendUsername); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}

	if friends == nil {
		friends = []models.FriendWithUser{}
	}

	return friends, nil
}

func (s *FriendGraphService) ListPendingRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at, f.updated_at, u.username
		 FROM friendships f
		 JOIN users u ON f.user_id = u.id
		 WHERE f.friend_id = $1 AND f.status = 'pending'
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.UserID, &r.FriendID, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.RequesterUsername); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}

	if requests == nil {
		requests = []models.FriendRequest{}
	}

	return requests, nil
}

func (s *FriendGraphService) getByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, friend_id, status, created_at, updated_at
		 FROM friendships WHERE id = $1`,
		friendshipID,
	).Scan(&friendship.ID, &friendship.UserID, &friendship.FriendID, &friendship.Status, &friendship.CreatedAt, &friendship.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendshipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting friendship: %w", err)
	}
	return friendship, nil
}
