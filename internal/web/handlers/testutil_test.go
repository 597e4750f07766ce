package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/credential"
	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/database/mock"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/kozaktomas/veriface/internal/membership"
	"github.com/kozaktomas/veriface/internal/web/middleware"
)

var testNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

// testEnv wires handlers to an in-memory store with one event owned by owner.
type testEnv struct {
	t        *testing.T
	ctx      context.Context
	store    *mock.Store
	svc      *attendance.Service
	importer *membership.Importer
	embedder *fakeEmbedder
	owner    database.Member
	event    *database.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewStore()
	e := &testEnv{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		svc:      attendance.NewService(store, database.NewMemberIndex(), attendance.Options{EmbeddingDim: 3, Now: func() time.Time { return testNow }}),
		importer: membership.NewImporter(store, &credential.BcryptHasher{Cost: 4}, membership.ImporterOptions{MaxRows: 10}),
		embedder: &fakeEmbedder{},
	}
	e.owner = e.createMember("Olga", nil)

	event, err := e.svc.CreateEvent(e.ctx, e.owner.ID, attendance.EventInput{Name: "Chemistry Lab"})
	if err != nil {
		t.Fatalf("creating event: %v", err)
	}
	e.event = event
	return e
}

func (e *testEnv) createMember(name string, embedding []float32) database.Member {
	e.t.Helper()
	m := database.Member{FirstName: name, LastName: "Tester", Email: name + "@example.com", Embedding: embedding}
	err := e.store.WithTx(e.ctx, func(tx database.Tx) error {
		return tx.CreateMember(e.ctx, &m)
	})
	if err != nil {
		e.t.Fatalf("creating member %s: %v", name, err)
	}
	return m
}

// join creates a member and adds them to the event.
func (e *testEnv) join(name string, embedding []float32) database.Member {
	e.t.Helper()
	m := e.createMember(name, embedding)
	if err := e.svc.AddMember(e.ctx, e.owner.ID, e.event.ID, m.ID); err != nil {
		e.t.Fatalf("adding %s to event: %v", name, err)
	}
	return m
}

func (e *testEnv) newSession() *database.Session {
	e.t.Helper()
	s, err := e.svc.CreateSession(e.ctx, e.owner.ID, e.event.ID, attendance.SessionInput{})
	if err != nil {
		e.t.Fatalf("creating session: %v", err)
	}
	return s
}

func (e *testEnv) attendanceOf(memberID, sessionID int64) *database.Attendance {
	e.t.Helper()
	var row *database.Attendance
	err := e.store.WithReadTx(e.ctx, func(tx database.Tx) error {
		var err error
		row, err = tx.GetAttendance(e.ctx, memberID, sessionID)
		return err
	})
	if err != nil {
		e.t.Fatalf("loading attendance: %v", err)
	}
	return row
}

// fakeEmbedder returns canned faces instead of calling the embedding service
type fakeEmbedder struct {
	single []float32
	faces  *fingerprint.FaceResult
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedFaces(_ context.Context, _ []byte) (*fingerprint.FaceResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.faces, nil
}

func (f *fakeEmbedder) EmbedSingleFace(_ context.Context, _ []byte) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.single, nil
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asMember marks the request as sent by memberID
func asMember(r *http.Request, memberID int64) *http.Request {
	return r.WithContext(middleware.SetMemberInContext(r.Context(), memberID))
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a request uploading data as the "file" field
func multipartRequest(t *testing.T, method, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
