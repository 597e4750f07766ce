package handlers

import (
	"time"

	"github.com/kozaktomas/veriface/internal/database"
)

// EventResponse represents an event in API responses
type EventResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	OwnerID   int64      `json:"owner_id"`
	StartsAt  *time.Time `json:"starts_at,omitempty"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Location  string     `json:"location,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SessionResponse represents a session in API responses
type SessionResponse struct {
	ID             int64      `json:"id"`
	EventID        int64      `json:"event_id"`
	SequenceNumber int        `json:"sequence_number"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Location       string     `json:"location,omitempty"`
}

// AttendanceResponse represents one attendance row
type AttendanceResponse struct {
	ID           int64                     `json:"id"`
	MemberID     int64                     `json:"member_id"`
	SessionID    int64                     `json:"session_id"`
	Status       database.AttendanceStatus `json:"status"`
	CheckInTime  *time.Time                `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time                `json:"check_out_time,omitempty"`
}

// RosterEntryResponse is an attendance row with the member's name
type RosterEntryResponse struct {
	AttendanceResponse
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// CountsResponse aggregates attendance by status
type CountsResponse struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
	Total   int `json:"total"`
}

// MemberResponse represents a member without credentials or embedding
type MemberResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Enrolled  bool   `json:"enrolled"`
}

func eventToResponse(e *database.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Name:      e.Name,
		OwnerID:   e.OwnerID,
		StartsAt:  e.StartsAt,
		EndsAt:    e.EndsAt,
		Location:  e.Location,
		CreatedAt: e.CreatedAt,
	}
}

func sessionToResponse(s *database.Session) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		EventID:        s.EventID,
		SequenceNumber: s.SequenceNumber,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Location:       s.Location,
	}
}

func attendanceToResponse(a *database.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:           a.ID,
		MemberID:     a.MemberID,
		SessionID:    a.SessionID,
		Status:       a.Status,
		CheckInTime:  a.CheckInTime,
		CheckOutTime: a.CheckOutTime,
	}
}

func countsToResponse(c database.StatusCounts) CountsResponse {
	return CountsResponse{
		Present: c.Present,
		Late:    c.Late,
		Absent:  c.Absent,
		Excused: c.Excused,
		Total:   c.Total(),
	}
}

func memberToResponse(m *database.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
		Enrolled:  m.Enrolled(),
	}
}
