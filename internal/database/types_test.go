package database

import (
	"encoding/json"
	"testing"
)

func TestParseAttendanceStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    AttendanceStatus
		wantErr bool
	}{
		{"present", StatusPresent, false},
		{"LATE", StatusLate, false},
		{" absent ", StatusAbsent, false},
		{"excused", StatusExcused, false},
		{"gone", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAttendanceStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAttendanceStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAttendanceStatus(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAttendanceStatus_ZeroValueInvalid(t *testing.T) {
	var s AttendanceStatus
	if s.Valid() {
		t.Error("zero status must be invalid")
	}
	if _, err := s.MarshalText(); err == nil {
		t.Error("expected error marshaling zero status")
	}
}

func TestAttendanceStatus_JSONRoundTrip(t *testing.T) {
	for _, s := range AllStatuses {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back AttendanceStatus
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %s -> %v", s, data, back)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	var c StatusCounts
	for _, s := range []AttendanceStatus{StatusPresent, StatusPresent, StatusLate, StatusAbsent, StatusExcused} {
		c.Increment(s)
	}
	if c.Present != 2 || c.Late != 1 || c.Absent != 1 || c.Excused != 1 {
		t.Errorf("unexpected counts %+v", c)
	}

	total := StatusCounts{Present: 1}
	total.Add(c)
	if total.Present != 3 || total.Total() != 6 {
		t.Errorf("unexpected totals %+v", total)
	}
}

func TestMember_FullName(t *testing.T) {
	m := Member{FirstName: "Ada", LastName: "Lovelace"}
	if m.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected full name %q", m.FullName())
	}
	m = Member{FirstName: "Cher"}
	if m.FullName() != "Cher" {
		t.Errorf("unexpected full name %q", m.FullName())
	}
}
