package database

import (
	"fmt"
	"strings"
	"time"
)

// Member is an enrolled person. Embedding is nil until a reference photo is processed.
type Member struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string // stored lowercased, unique
	PasswordHash string
	Embedding    []float32
	CreatedAt    time.Time
}

// FullName returns "First Last" without stray whitespace.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Enrolled reports whether the member has a reference embedding.
func (m *Member) Enrolled() bool {
	return len(m.Embedding) > 0
}

// Event groups sessions. Name is unique and OwnerID never changes after creation.
type Event struct {
	ID        int64
	Name      string
	OwnerID   int64
	StartsAt  *time.Time
	EndsAt    *time.Time
	Location  string
	CreatedAt time.Time
}

// Membership links a member to an event (unique per pair).
type Membership struct {
	MemberID  int64
	EventID   int64
	CreatedAt time.Time
}

// Session is a numbered sub-unit of an event holding its own attendance roster.
type Session struct {
	ID             int64
	EventID        int64
	SequenceNumber int
	StartTime      *time.Time
	EndTime        *time.Time
	Location       string
}

// Attendance is the single record of a member in a session.
type Attendance struct {
	ID           int64
	MemberID     int64
	SessionID    int64
	Status       AttendanceStatus
	CheckInTime  *time.Time
	CheckOutTime *time.Time
}

// AttendanceStatus is a closed enumeration. The zero value is invalid.
type AttendanceStatus uint8

const (
	StatusAbsent AttendanceStatus = iota + 1
	StatusPresent
	StatusLate
	StatusExcused
)

// AllStatuses lists every valid status in declaration order.
var AllStatuses = []AttendanceStatus{StatusAbsent, StatusPresent, StatusLate, StatusExcused}

var statusNames = map[AttendanceStatus]string{
	StatusAbsent:  "absent",
	StatusPresent: "present",
	StatusLate:    "late",
	StatusExcused: "excused",
}

// String returns the persisted name of the status.
func (s AttendanceStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AttendanceStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the declared statuses.
func (s AttendanceStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseAttendanceStatus parses a persisted status name (case-insensitive).
func ParseAttendanceStatus(name string) (AttendanceStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown attendance status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s AttendanceStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid attendance status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AttendanceStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAttendanceStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RosterEntry is an attendance row joined with its member.
type RosterEntry struct {
	Attendance
	FirstName string
	LastName  string
	Email     string
}

// StatusCounts aggregates attendance rows of one session by status.
type StatusCounts struct {
	Present int
	Late    int
	Absent  int
	Excused int
}

// Add accumulates other into c.
func (c *StatusCounts) Add(other StatusCounts) {
	c.Present += other.Present
	c.Late += other.Late
	c.Absent += other.Absent
	c.Excused += other.Excused
}

// Increment counts one row with the given status.
func (c *StatusCounts) Increment(s AttendanceStatus) {
	switch s {
	case StatusPresent:
		c.Present++
	case StatusLate:
		c.Late++
	case StatusAbsent:
		c.Absent++
	case StatusExcused:
		c.Excused++
	}
}

// Total returns the number of counted rows.
func (c StatusCounts) Total() int {
	return c.Present + c.Late + c.Absent + c.Excused
}
