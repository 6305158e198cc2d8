package models

import (
	"time"

	"github.com/google/uuid"
)

type PingKind string

const (
	PingKindLocationRequest PingKind = "location_request"
	PingKindVenueInvite     PingKind = "venue_invite"
)

func (k PingKind) Valid() bool {
	return k == PingKindLocationRequest || k == PingKindVenueInvite
}

type PingStatus string

const (
	PingStatusPending   PingStatus = "pending"
	PingStatusAccepted  PingStatus = "accepted"
	PingStatusDeclined  PingStatus = "declined"
	PingStatusExpired   PingStatus = "expired"
	PingStatusCancelled PingStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s PingStatus) Terminal() bool {
	switch s {
	case PingStatusAccepted, PingStatusDeclined, PingStatusExpired, PingStatusCancelled:
		return true
	}
	return false
}

// PingActor identifies which party is allowed to drive a given transition.
type PingActor string

const (
	ActorRequester PingActor = "requester"
	ActorResponder PingActor = "responder"
	ActorSystem    PingActor = "system"
)

// pingTransitions is the full transition table. Every legal move starts at
// pending; the target status determines the authorized actor.
var pingTransitions = map[PingStatus]map[PingStatus]PingActor{
	PingStatusPending: {
		PingStatusAccepted:  ActorResponder,
		PingStatusDeclined:  ActorResponder,
		PingStatusCancelled: ActorRequester,
		PingStatusExpired:   ActorSystem,
	},
}

// TransitionAllowed reports whether the move from one status to another is
// legal, regardless of who attempts it.
func TransitionAllowed(from, to PingStatus) bool {
	_, ok := pingTransitions[from][to]
	return ok
}

// TransitionActor returns the party authorized to drive the move from one
// status to another. ok is false when the move itself is illegal.
func TransitionActor(from, to PingStatus) (PingActor, bool) {
	actor, ok := pingTransitions[from][to]
	return actor, ok
}

// ReasonSharingDisabled marks an acceptance that was degraded to a decline
// because the responder had location sharing turned off.
const ReasonSharingDisabled = "sharing_disabled"

type PingDecision string

const (
	DecisionAccept  PingDecision = "accept"
	DecisionDecline PingDecision = "decline"
)

func (d PingDecision) Valid() bool {
	return d == DecisionAccept || d == DecisionDecline
}

// PingRequest is a directed request from one user to an accepted friend:
// either "where are you?" or "join me at this venue".
type PingRequest struct {
	ID           uuid.UUID  `json:"id"`
	RequesterID  uuid.UUID  `json:"requester_id"`
	ResponderID  uuid.UUID  `json:"responder_id"`
	Kind         PingKind   `json:"kind"`
	Status       PingStatus `json:"status"`
	VenueRef     *uuid.UUID `json:"venue_ref,omitempty"`
	Details      string     `json:"details,omitempty"`
	ResponseText *string    `json:"response_text,omitempty"`
	ReasonCode   *string    `json:"reason_code,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	RespondedAt  *time.Time `json:"responded_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Open reports whether the ping still awaits a decision.
func (p *PingRequest) Open() bool {
	return p.Status == PingStatusPending
}

// ExpiredBy reports whether the ping's TTL has elapsed as of now.
func (p *PingRequest) ExpiredBy(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}
