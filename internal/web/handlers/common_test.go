package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/kozaktomas/veriface/internal/membership"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]string{"status": "ok"})

	assertStatusCode(t, recorder, http.StatusCreated)
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
	if recorder.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("unexpected body %q", recorder.Body.String())
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("session 3: %w", database.ErrNotFound), http.StatusNotFound},
		{"forbidden", fmt.Errorf("event 1: %w", attendance.ErrForbidden), http.StatusForbidden},
		{"conflict", database.ErrConflict, http.StatusConflict},
		{"no enrolled candidates", attendance.ErrNoEnrolledCandidates, http.StatusUnprocessableEntity},
		{"not recognized", attendance.ErrNotRecognized, http.StatusUnauthorized},
		{"invalid threshold", attendance.ErrInvalidThreshold, http.StatusBadRequest},
		{"invalid status", attendance.ErrInvalidStatus, http.StatusBadRequest},
		{"invalid embedding", attendance.ErrInvalidEmbedding, http.StatusBadRequest},
		{"invalid window", attendance.ErrInvalidWindow, http.StatusBadRequest},
		{"invalid input", attendance.ErrInvalidInput, http.StatusBadRequest},
		{"too many rows", membership.ErrTooManyRows, http.StatusBadRequest},
		{"missing columns", membership.ErrMissingColumns, http.StatusBadRequest},
		{"no face", fingerprint.ErrNoFaceDetected, http.StatusBadRequest},
		{"several faces", fingerprint.ErrMultipleFacesDetected, http.StatusBadRequest},
		{"import failed", membership.ErrImportFailed, http.StatusInternalServerError},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorStatus(tc.err); got != tc.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRespondServiceError_HidesInternalErrors(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondServiceError(recorder, errors.New("pq: password authentication failed"), "failed to load overview")

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to load overview")
}

func TestRespondServiceError_ExposesDomainErrors(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondServiceError(recorder, attendance.ErrNotRecognized, "failed to check in")

	assertStatusCode(t, recorder, http.StatusUnauthorized)
	assertJSONError(t, recorder, attendance.ErrNotRecognized.Error())
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value  string
		want   int64
		wantOK bool
	}{
		{"17", 17, true},
		{"0", 0, false},
		{"-4", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": tc.value})
			got, ok := parseIDParam(req, "id")
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("parseIDParam(%q) = %d, %v; want %d, %v", tc.value, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestActingMember_Missing(t *testing.T) {
	recorder := httptest.NewRecorder()
	_, ok := actingMember(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if ok {
		t.Fatal("expected no acting member")
	}
	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", pingerFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"database down", pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewHealthHandler(tc.db).Check(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assertStatusCode(t, recorder, tc.wantStatus)
			var body map[string]string
			parseJSONResponse(t, recorder, &body)
			if body["status"] != tc.wantBody {
				t.Errorf("status = %q, want %q", body["status"], tc.wantBody)
			}
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		wantOK      bool
		wantMessage string
	}{
		{"valid", map[string]any{"member_id": 7}, true, ""},
		{"missing member id", map[string]any{}, false, "invalid memberid"},
		{"negative member id", map[string]any{"member_id": -1}, false, "invalid memberid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req AddMemberRequest
			recorder := httptest.NewRecorder()

			ok := decodeAndValidate(recorder, jsonRequest(t, http.MethodPost, "/", tt.body), &req)

			if ok != tt.wantOK {
				t.Fatalf("decodeAndValidate() = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				assertStatusCode(t, recorder, http.StatusBadRequest)
				assertJSONError(t, recorder, tt.wantMessage)
			}
		})
	}
}

func TestDecodeAndValidate_ThresholdRange(t *testing.T) {
	var req CheckInRequest
	recorder := httptest.NewRecorder()
	body := map[string]any{"embedding": []float32{1, 0, 0}, "threshold": 1.5}

	if decodeAndValidate(recorder, jsonRequest(t, http.MethodPost, "/", body), &req) {
		t.Fatal("expected threshold above 1 to be rejected")
	}
	assertJSONError(t, recorder, "invalid threshold")
}
