package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/models"
	"github.com/nightowl-social/nightowl/internal/services"
)

type PingHandler struct {
	pingService services.PingServiceInterface
}

func NewPingHandler(pingService services.PingServiceInterface) *PingHandler {
	return &PingHandler{pingService: pingService}
}

type CreatePingRequest struct {
	ResponderID string  `json:"responder_id"`
	Kind        string  `json:"kind"`
	Details     string  `json:"details"`
	VenueRef    *string `json:"venue_ref,omitempty"`
}

type RespondPingRequest struct {
	Decision     string  `json:"decision"`
	ResponseText *string `json:"response_text,omitempty"`
}

type PingResponse struct {
	Ping    *models.PingRequest `json:"ping,omitempty"`
	Message string              `json:"message,omitempty"`
}

type PingListResponse struct {
	Pings []models.PingRequest `json:"pings"`
}

func (h *PingHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreatePingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	responderID, err := uuid.Parse(req.ResponderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid responder ID")
		return
	}

	var venueRef *uuid.UUID
	if req.VenueRef != nil {
		venueID, err := uuid.Parse(*req.VenueRef)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid venue reference")
			return
		}
		venueRef = &venueID
	}

	ping, err := h.pingService.Create(r.Context(), services.CreatePingParams{
		RequesterID: user.ID,
		ResponderID: responderID,
		Kind:        models.PingKind(req.Kind),
		Details:     req.Details,
		VenueRef:    venueRef,
	})
	if err != nil {
		h.writePingError(w, "creating ping", err)
		return
	}

	writeJSON(w, http.StatusCreated, PingResponse{Ping: ping})
}

func (h *PingHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pingID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ping ID")
		return
	}

	ping, err := h.pingService.Get(r.Context(), pingID)
	if err != nil {
		h.writePingError(w, "getting ping", err)
		return
	}

	// Non-participants get the same answer as a missing ping.
	if ping.RequesterID != user.ID && ping.ResponderID != user.ID {
		writeError(w, http.StatusNotFound, "Ping not found")
		return
	}

	writeJSON(w, http.StatusOK, PingResponse{Ping: ping})
}

func (h *PingHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pings, err := h.pingService.ListOpenFor(r.Context(), user.ID)
	if err != nil {
		h.writePingError(w, "listing open pings", err)
		return
	}

	writeJSON(w, http.StatusOK, PingListResponse{Pings: pings})
}

func (h *PingHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pingID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ping ID")
		return
	}

	var req RespondPingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ping, err := h.pingService.Respond(r.Context(), pingID, user.ID, models.PingDecision(req.Decision), req.ResponseText)
	if err != nil {
		h.writePingError(w, "responding to ping", err)
		return
	}

	writeJSON(w, http.StatusOK, PingResponse{Ping: ping})
}

func (h *PingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	pingID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ping ID")
		return
	}

	ping, err := h.pingService.Cancel(r.Context(), pingID, user.ID)
	if err != nil {
		h.writePingError(w, "cancelling ping", err)
		return
	}

	writeJSON(w, http.StatusOK, PingResponse{Ping: ping, Message: "Ping cancelled"})
}

func (h *PingHandler) writePingError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, services.ErrCannotPingSelf):
		writeError(w, http.StatusBadRequest, "Cannot ping yourself")
	case errors.Is(err, services.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "Unknown ping kind")
	case errors.Is(err, services.ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, "Decision must be accept or decline")
	case errors.Is(err, services.ErrDetailsTooLong):
		writeError(w, http.StatusBadRequest, "Message is too long")
	case errors.Is(err, services.ErrVenueRequired):
		writeError(w, http.StatusBadRequest, "Venue invites require a venue")
	case errors.Is(err, services.ErrVenueNotAllowed):
		writeError(w, http.StatusBadRequest, "Location requests cannot reference a venue")
	case errors.Is(err, services.ErrNotFriends):
		writeError(w, http.StatusForbidden, "You can only ping accepted friends")
	case errors.Is(err, services.ErrNotResponder):
		writeError(w, http.StatusForbidden, "Only the responder can answer this ping")
	case errors.Is(err, services.ErrNotRequester):
		writeError(w, http.StatusForbidden, "Only the requester can cancel this ping")
	case errors.Is(err, services.ErrDuplicatePing):
		writeError(w, http.StatusConflict, "An open ping of this kind already exists")
	case errors.Is(err, services.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Ping has already been resolved")
	case errors.Is(err, services.ErrPingNotFound):
		writeError(w, http.StatusNotFound, "Ping not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Storage timed out")
	default:
		log.Printf("Error %s: %v", action, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
