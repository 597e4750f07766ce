package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/database"
)

// SessionsHandler handles session and attendance roster endpoints
type SessionsHandler struct {
	svc *attendance.Service
}

// NewSessionsHandler creates a new sessions handler
func NewSessionsHandler(svc *attendance.Service) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// CreateSessionRequest is the body of POST /events/{id}/sessions
type CreateSessionRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Location  string     `json:"location"`
}

// UpdateStatusRequest is the body of PUT /sessions/{id}/attendance/{memberID}
type UpdateStatusRequest struct {
	Status database.AttendanceStatus `json:"status"`
}

// TimeRequest optionally carries an explicit timestamp; absent means now.
type TimeRequest struct {
	Time *time.Time `json:"time"`
}

// SessionAttendanceResponse is the roster of a session
type SessionAttendanceResponse struct {
	Session SessionResponse       `json:"session"`
	Roster  []RosterEntryResponse `json:"roster"`
	Counts  CountsResponse        `json:"counts"`
}

// Create adds a numbered session to an event and seeds its roster
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	memberID, ok := actingMember(w, r)
	if !ok {
		return
	}
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	session, err := h.svc.CreateSession(r.Context(), memberID, eventID, attendance.SessionInput{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
	})
	if err != nil {
		respondServiceError(w, err, "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, sessionToResponse(session))
}

// Delete removes a session and its attendance
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	memberID, ok := actingMember(w, r)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), memberID, sessionID); err != nil {
		respondServiceError(w, err, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Seed creates absent rows for members without one
func (h *SessionsHandler) Seed(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if !requireSessionOwner(w, r, h.svc, sessionID) {
		return
	}

	created, err := h.svc.SeedAttendance(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err, "failed to seed attendance")
		return
	}

	rows := make([]AttendanceResponse, len(created))
	for i := range created {
		rows[i] = attendanceToResponse(&created[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"created": len(created),
		"rows":    rows,
	})
}

// Attendance returns the roster of a session
func (h *SessionsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if !requireSessionOwner(w, r, h.svc, sessionID) {
		return
	}

	result, err := h.svc.GetSessionAttendance(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err, "failed to load attendance")
		return
	}

	resp := SessionAttendanceResponse{
		Session: sessionToResponse(&result.Session),
		Roster:  make([]RosterEntryResponse, len(result.Roster)),
		Counts:  countsToResponse(result.Counts),
	}
	for i := range result.Roster {
		entry := &result.Roster[i]
		resp.Roster[i] = RosterEntryResponse{
			AttendanceResponse: attendanceToResponse(&entry.Attendance),
			FirstName:          entry.FirstName,
			LastName:           entry.LastName,
			Email:              entry.Email,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateStatus sets the status of a member's attendance row
func (h *SessionsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, memberID, ok := sessionMemberParams(w, r)
	if !ok {
		return
	}
	if !requireSessionOwner(w, r, h.svc, sessionID) {
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, attendance.ErrInvalidStatus.Error())
		return
	}

	row, err := h.svc.UpdateStatus(r.Context(), memberID, sessionID, req.Status)
	if err != nil {
		respondServiceError(w, err, "failed to update attendance")
		return
	}

	respondJSON(w, http.StatusOK, attendanceToResponse(row))
}

// CheckIn marks a member present without face recognition
func (h *SessionsHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	sessionID, memberID, ok := sessionMemberParams(w, r)
	if !ok {
		return
	}
	if !requireSessionOwner(w, r, h.svc, sessionID) {
		return
	}
	when, ok := optionalTime(w, r)
	if !ok {
		return
	}

	row, err := h.svc.CheckIn(r.Context(), memberID, sessionID, when)
	if err != nil {
		respondServiceError(w, err, "failed to check in")
		return
	}

	respondJSON(w, http.StatusOK, attendanceToResponse(row))
}

// CheckOut records when a member left the session
func (h *SessionsHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	sessionID, memberID, ok := sessionMemberParams(w, r)
	if !ok {
		return
	}
	if !requireSessionOwner(w, r, h.svc, sessionID) {
		return
	}
	when, ok := optionalTime(w, r)
	if !ok {
		return
	}

	row, err := h.svc.CheckOut(r.Context(), memberID, sessionID, when)
	if err != nil {
		respondServiceError(w, err, "failed to check out")
		return
	}

	respondJSON(w, http.StatusOK, attendanceToResponse(row))
}

func sessionMemberParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return 0, 0, false
	}
	memberID, ok := parseIDParam(r, "memberID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return 0, 0, false
	}
	return sessionID, memberID, true
}

// optionalTime reads {"time": ...} from the body. An empty body yields the zero time.
func optionalTime(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	var req TimeRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return time.Time{}, false
	}
	if req.Time == nil {
		return time.Time{}, true
	}
	return *req.Time, true
}
