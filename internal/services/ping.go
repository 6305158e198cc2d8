package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nightowl-social/nightowl/internal/models"
)

var (
	ErrNotFriends        = errors.New("users are not accepted friends")
	ErrCannotPingSelf    = errors.New("cannot ping yourself")
	ErrDuplicatePing     = errors.New("an open ping of this kind already exists")
	ErrPingNotFound      = errors.New("ping not found")
	ErrInvalidTransition = errors.New("ping is not in a state that allows this transition")
	ErrNotResponder      = errors.New("only the responder can answer this ping")
	ErrNotRequester      = errors.New("only the requester can cancel this ping")
	ErrInvalidKind       = errors.New("unknown ping kind")
	ErrInvalidDecision   = errors.New("decision must be accept or decline")
	ErrDetailsTooLong    = errors.New("details text exceeds the allowed length")
	ErrVenueRequired     = errors.New("venue invites require a venue reference")
	ErrVenueNotAllowed   = errors.New("location requests cannot carry a venue reference")
)

const pingColumns = `id, requester_id, responder_id, kind, status, venue_ref,
	details, response_text, reason_code, requested_at, responded_at, expires_at`

// PingService is the store and single mutation path for ping requests. Every
// status change goes through a compare-and-set against the pending status, so
// concurrent responders, cancellers and the sweeper cannot double-commit.
type PingService struct {
	db         DB
	friends    FriendGraph
	dispatcher Dispatcher
	ttl        time.Duration
	maxDetails int
}

func NewPingService(db DB, friends FriendGraph, dispatcher Dispatcher, ttl time.Duration, maxDetails int) *PingService {
	return &PingService{
		db:         db,
		friends:    friends,
		dispatcher: dispatcher,
		ttl:        ttl,
		maxDetails: maxDetails,
	}
}

type CreatePingParams struct {
	RequesterID uuid.UUID
	ResponderID uuid.UUID
	Kind        models.PingKind
	Details     string
	VenueRef    *uuid.UUID
}

func (s *PingService) Create(ctx context.Context, params CreatePingParams) (*models.PingRequest, error) {
	if !params.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if params.RequesterID == params.ResponderID {
		return nil, ErrCannotPingSelf
	}
	if utf8.RuneCountInString(params.Details) > s.maxDetails {
		return nil, ErrDetailsTooLong
	}
	switch params.Kind {
	case models.PingKindVenueInvite:
		if params.VenueRef == nil {
			return nil, ErrVenueRequired
		}
	case models.PingKindLocationRequest:
		if params.VenueRef != nil {
			return nil, ErrVenueNotAllowed
		}
	}

	isFriend, err := s.friends.IsAcceptedFriend(ctx, params.RequesterID, params.ResponderID)
	if err != nil {
		return nil, fmt.Errorf("authorizing ping: %w", err)
	}
	if !isFriend {
		return nil, ErrNotFriends
	}

	// Fast-path duplicate check; the partial unique index is the real guard
	// against a concurrent create racing past this read.
	var open bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM pings
			WHERE requester_id = $1 AND responder_id = $2 AND kind = $3 AND status = 'pending'
		)`,
		params.RequesterID, params.ResponderID, params.Kind,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("checking for open ping: %w", err)
	}
	if open {
		return nil, ErrDuplicatePing
	}

	ping := &models.PingRequest{}
	err = scanPing(s.db.QueryRow(ctx,
		`INSERT INTO pings (requester_id, responder_id, kind, venue_ref, details, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', NOW() + make_interval(secs => $6))
		 RETURNING `+pingColumns,
		params.RequesterID, params.ResponderID, params.Kind, params.VenueRef,
		params.Details, s.ttl.Seconds(),
	), ping)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicatePing
		}
		return nil, fmt.Errorf("creating ping: %w", err)
	}

	s.dispatcher.Emit(ctx, models.NotificationEvent{
		TargetUserID: ping.ResponderID,
		PingID:       ping.ID,
		Status:       ping.Status,
		OccurredAt:   ping.RequestedAt,
	})

	return ping, nil
}

func (s *PingService) Get(ctx context.Context, id uuid.UUID) (*models.PingRequest, error) {
	return s.getByID(ctx, id)
}

// ListOpenFor returns the user's pending pings, both sent and received,
// oldest first: stale requests are the most urgent to resolve or expire.
func (s *PingService) ListOpenFor(ctx context.Context, userID uuid.UUID) ([]models.PingRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+pingColumns+`
		 FROM pings
		 WHERE (requester_id = $1 OR responder_id = $1) AND status = 'pending'
		 ORDER BY requested_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing open pings: %w", err)
	}
	defer rows.Close()

	var pings []models.PingRequest
	for rows.Next() {
		var p models.PingRequest
		if err := scanPing(rows, &p); err != nil {
			return nil, fmt.Errorf("scanning ping: %w", err)
		}
		pings = append(pings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing open pings: %w", err)
	}

	if pings == nil {
		pings = []models.PingRequest{}
	}

	return pings, nil
}

// Respond commits the responder's decision. Accepting a location request
// while the responder has sharing turned off degrades to a decline with a
// reason code instead of failing, so the requester learns why.
func (s *PingService) Respond(ctx context.Context, id, responderID uuid.UUID, decision models.PingDecision, responseText *string) (*models.PingRequest, error) {
	if !decision.Valid() {
		return nil, ErrInvalidDecision
	}
	if responseText != nil && utf8.RuneCountInString(*responseText) > s.maxDetails {
		return nil, ErrDetailsTooLong
	}

	ping, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ping.ResponderID != responderID {
		return nil, ErrNotResponder
	}

	target := models.PingStatusAccepted
	if decision == models.DecisionDecline {
		target = models.PingStatusDeclined
	}

	var reason *string
	if decision == models.DecisionAccept && ping.Kind == models.PingKindLocationRequest {
		sharing, err := s.friends.SharingEnabled(ctx, responderID)
		if err != nil {
			return nil, fmt.Errorf("checking sharing preference: %w", err)
		}
		if !sharing {
			target = models.PingStatusDeclined
			r := models.ReasonSharingDisabled
			reason = &r
		}
	}

	if !models.TransitionAllowed(ping.Status, target) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.commitTransition(ctx, id, target, reason, responseText, true)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Emit(ctx, models.NotificationEvent{
		TargetUserID: updated.RequesterID,
		PingID:       updated.ID,
		Status:       updated.Status,
		ReasonCode:   updated.ReasonCode,
		OccurredAt:   eventTime(updated),
	})

	return updated, nil
}

// Cancel withdraws a pending ping. Once a responder's decision has
// committed, cancellation loses the race and reports InvalidTransition.
func (s *PingService) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*models.PingRequest, error) {
	ping, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ping.RequesterID != requesterID {
		return nil, ErrNotRequester
	}
	if !models.TransitionAllowed(ping.Status, models.PingStatusCancelled) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.commitTransition(ctx, id, models.PingStatusCancelled, nil, nil, false)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Emit(ctx, models.NotificationEvent{
		TargetUserID: updated.ResponderID,
		PingID:       updated.ID,
		Status:       updated.Status,
		OccurredAt:   eventTime(updated),
	})

	return updated, nil
}

// Expire moves an overdue pending ping to expired on behalf of the sweeper.
// The expires_at predicate keeps a lagging sweeper from expiring a ping whose
// deadline was extended or that is not actually due.
func (s *PingService) Expire(ctx context.Context, id uuid.UUID) (*models.PingRequest, error) {
	updated := &models.PingRequest{}
	err := scanPing(s.db.QueryRow(ctx,
		`UPDATE pings
		 SET status = 'expired'
		 WHERE id = $1 AND status = 'pending' AND expires_at <= NOW()
		 RETURNING `+pingColumns,
		id,
	), updated)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to a respond/cancel, or the ping is unknown.
		if _, getErr := s.getByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("expiring ping: %w", err)
	}

	s.dispatcher.Emit(ctx, models.NotificationEvent{
		TargetUserID: updated.RequesterID,
		PingID:       updated.ID,
		Status:       updated.Status,
		OccurredAt:   time.Now().UTC(),
	})

	return updated, nil
}

// ListExpiredPending returns ids of pending pings whose TTL has elapsed,
// oldest deadline first, bounded by limit.
func (s *PingService) ListExpiredPending(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM pings
		 WHERE status = 'pending' AND expires_at <= NOW()
		 ORDER BY expires_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired pings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning ping id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing expired pings: %w", err)
	}

	return ids, nil
}

// commitTransition is the optimistic write shared by Respond and Cancel: the
// WHERE status = 'pending' clause is the compare half of the compare-and-set,
// so whichever transition commits first wins and the loser sees no row.
func (s *PingService) commitTransition(ctx context.Context, id uuid.UUID, target models.PingStatus, reason, responseText *string, responded bool) (*models.PingRequest, error) {
	updated := &models.PingRequest{}
	err := scanPing(s.db.QueryRow(ctx,
		`UPDATE pings
		 SET status = $2,
		     reason_code = $3,
		     response_text = COALESCE($4, response_text),
		     responded_at = CASE WHEN $5 THEN NOW() ELSE responded_at END
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+pingColumns,
		id, target, reason, responseText, responded,
	), updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("committing transition to %s: %w", target, err)
	}
	return updated, nil
}

func (s *PingService) getByID(ctx context.Context, id uuid.UUID) (*models.PingRequest, error) {
	ping := &models.PingRequest{}
	err := scanPing(s.db.QueryRow(ctx,
		`SELECT `+pingColumns+` FROM pings WHERE id = $1`,
		id,
	), ping)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ping: %w", err)
	}
	return ping, nil
}

func scanPing(row Row, p *models.PingRequest) error {
	return row.Scan(
		&p.ID, &p.RequesterID, &p.ResponderID, &p.Kind, &p.Status, &p.VenueRef,
		&p.Details, &p.ResponseText, &p.ReasonCode, &p.RequestedAt, &p.RespondedAt, &p.ExpiresAt,
	)
}

func eventTime(p *models.PingRequest) time.Time {
	if p.RespondedAt != nil {
		return *p.RespondedAt
	}
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
