package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/veriface/internal/membership"
)

func importRequest(t *testing.T, env *testEnv, actingID int64, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req = requestWithChiParams(asMember(req, actingID), map[string]string{"id": fmt.Sprint(env.event.ID)})
	recorder := httptest.NewRecorder()
	NewImportHandler(env.svc, env.importer).Import(recorder, req)
	return recorder
}

func TestImportHandler_CSV(t *testing.T) {
	env := newTestEnv(t)
	existing := env.createMember("dana", nil)
	session := env.newSession()

	csv := "First Name,Last Name,Email\n" +
		"Ada,Lovelace,ada@example.com\n" +
		"Dana,Tester," + strings.ToUpper(existing.Email) + "\n"
	req := multipartRequest(t, http.MethodPost, "/", "members.csv", []byte(csv), nil)
	recorder := importRequest(t, env, env.owner.ID, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result ImportResponse
	parseJSONResponse(t, recorder, &result)
	if !result.Success || result.NewMembersCreated != 1 || result.ExistingMembersAdded != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Credentials) != 1 || result.Credentials[0].Email != "ada@example.com" || result.Credentials[0].Password == "" {
		t.Errorf("credentials = %+v, want one for ada", result.Credentials)
	}
	if result.BatchID == "" {
		t.Error("missing batch id")
	}
	if want := (membership.Projection{Create: 1, Add: 1}); result.Projected != want {
		t.Errorf("projected = %+v, want %+v", result.Projected, want)
	}

	// Imported members get a row in existing sessions.
	if got := env.attendanceOf(existing.ID, session.ID); got == nil {
		t.Error("existing member was not backfilled")
	}
}

func TestImportHandler_InvalidRowsRejectBatch(t *testing.T) {
	env := newTestEnv(t)
	membersBefore, _, membershipsBefore, _, _ := env.store.Counts()

	body := ImportRequest{Rows: []ImportRowRequest{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		{FirstName: "", LastName: "Hopper", Email: "grace@example.com"},
		{FirstName: "Alan", LastName: "Turing", Email: "not-an-email"},
	}}
	recorder := importRequest(t, env, env.owner.ID, jsonRequest(t, http.MethodPost, "/", body))

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	var result ImportResponse
	parseJSONResponse(t, recorder, &result)
	if result.Success || result.InvalidRows != 2 || len(result.Errors) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0].Row != 2 || result.Errors[0].Message != "First name is required" {
		t.Errorf("first error = %+v", result.Errors[0])
	}
	if result.Errors[1].Row != 3 || result.Errors[1].Message != "Invalid email format" {
		t.Errorf("second error = %+v", result.Errors[1])
	}

	membersAfter, _, membershipsAfter, _, _ := env.store.Counts()
	if membersAfter != membersBefore || membershipsAfter != membershipsBefore {
		t.Error("rejected batch wrote data")
	}
}

func TestImportHandler_Errors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.join("alice", nil)

	tests := []struct {
		name       string
		actingID   int64
		req        func() *http.Request
		wantStatus int
	}{
		{
			name:     "not the owner",
			actingID: alice.ID,
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPost, "/", ImportRequest{})
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:     "missing columns",
			actingID: env.owner.ID,
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/", "m.csv", []byte("name,mail\nA,a@example.com\n"), nil)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:     "too many rows",
			actingID: env.owner.ID,
			req: func() *http.Request {
				var b strings.Builder
				b.WriteString("first_name,last_name,email\n")
				for i := 0; i < 11; i++ {
					fmt.Fprintf(&b, "P%d,Q,p%d@example.com\n", i, i)
				}
				return multipartRequest(t, http.MethodPost, "/", "m.csv", []byte(b.String()), nil)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:     "bad json",
			actingID: env.owner.ID,
			req: func() *http.Request {
				return jsonRequest(t, http.MethodPost, "/", 42)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := importRequest(t, env, tc.actingID, tc.req())
			assertStatusCode(t, recorder, tc.wantStatus)
		})
	}
}
