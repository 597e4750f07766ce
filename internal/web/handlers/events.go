package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
)

// EventsHandler handles event, membership and overview endpoints
type EventsHandler struct {
	svc *attendance.Service
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(svc *attendance.Service) *EventsHandler {
	return &EventsHandler{svc: svc}
}

// CreateEventRequest is the body of POST /events
type CreateEventRequest struct {
	Name     string     `json:"name" validate:"required,max=200"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Location string     `json:"location" validate:"max=200"`
}

// AddMemberRequest is the body of POST /events/{id}/members
type AddMemberRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
}

// SessionSummaryResponse counts one session in an event overview
type SessionSummaryResponse struct {
	SessionID      int64          `json:"session_id"`
	SequenceNumber int            `json:"sequence_number"`
	StartTime      *time.Time     `json:"start_time,omitempty"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	Location       string         `json:"location,omitempty"`
	Counts         CountsResponse `json:"counts"`
}

// OverviewResponse is the per-session attendance breakdown of an event
type OverviewResponse struct {
	EventID  int64                    `json:"event_id"`
	Name     string                   `json:"name"`
	Sessions []SessionSummaryResponse `json:"sessions"`
	Totals   CountsResponse           `json:"totals"`
}

// List returns the events the acting member belongs to
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	memberID, ok := actingMember(w, r)
	if !ok {
		return
	}

	events, err := h.svc.ListEvents(r.Context(), memberID)
	if err != nil {
		respondServiceError(w, err, "failed to list events")
		return
	}

	result := make([]EventResponse, len(events))
	for i := range events {
		result[i] = eventToResponse(&events[i])
	}
	respondJSON(w, http.StatusOK, result)
}

// Create creates an event owned by the acting member
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID, ok := actingMember(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), memberID, attendance.EventInput{
		Name:     req.Name,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Location: req.Location,
	})
	if err != nil {
		respondServiceError(w, err, "failed to create event")
		return
	}

	respondJSON(w, http.StatusCreated, eventToResponse(event))
}

// Delete removes an event with its sessions, attendance and memberships
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	memberID, ok := actingMember(w, r)
	if !ok {
		return
	}
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	deleted, err := h.svc.DeleteEventCascade(r.Context(), memberID, eventID)
	if err != nil {
		respondServiceError(w, err, "failed to delete event")
		return
	}
	if !deleted {
		log.Printf("member %d may not delete event %d", memberID, eventID)
		respondError(w, http.StatusForbidden, "only the event owner may delete it")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Overview returns attendance counts per session of an event
func (h *EventsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if !requireEventOwner(w, r, h.svc, eventID) {
		return
	}

	includeOwner := false
	if v := r.URL.Query().Get("include_owner"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid include_owner")
			return
		}
		includeOwner = parsed
	}

	overview, err := h.svc.GetEventAttendanceOverview(r.Context(), eventID, !includeOwner)
	if err != nil {
		respondServiceError(w, err, "failed to load overview")
		return
	}

	resp := OverviewResponse{
		EventID:  overview.EventID,
		Name:     overview.Name,
		Sessions: make([]SessionSummaryResponse, len(overview.Sessions)),
		Totals:   countsToResponse(overview.Totals),
	}
	for i, s := range overview.Sessions {
		resp.Sessions[i] = SessionSummaryResponse{
			SessionID:      s.SessionID,
			SequenceNumber: s.SequenceNumber,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Location:       s.Location,
			Counts:         countsToResponse(s.Counts),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListMembers lists event members, optionally filtered by ?q=
func (h *EventsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if !requireEventOwner(w, r, h.svc, eventID) {
		return
	}

	members, err := h.svc.FindMembers(r.Context(), eventID, r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, err, "failed to list members")
		return
	}

	result := make([]MemberResponse, len(members))
	for i := range members {
		result[i] = memberToResponse(&members[i])
	}
	respondJSON(w, http.StatusOK, result)
}

// AddMember adds an existing member to the event
func (h *EventsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actingID, ok := actingMember(w, r)
	if !ok {
		return
	}
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req AddMemberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.AddMember(r.Context(), actingID, eventID, req.MemberID); err != nil {
		respondServiceError(w, err, "failed to add member")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{
		"event_id":  eventID,
		"member_id": req.MemberID,
	})
}

// RemoveMember removes a member from the event
func (h *EventsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actingID, ok := actingMember(w, r)
	if !ok {
		return
	}
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := h.svc.RemoveMember(r.Context(), actingID, eventID, memberID); err != nil {
		respondServiceError(w, err, "failed to remove member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Backfill gives every member of the event a row in every session
func (h *EventsHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if !requireEventOwner(w, r, h.svc, eventID) {
		return
	}

	created, err := h.svc.BackfillAttendance(r.Context(), eventID)
	if err != nil {
		respondServiceError(w, err, "failed to backfill attendance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"created": created})
}
