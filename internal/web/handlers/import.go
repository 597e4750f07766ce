package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/membership"
)

// ImportHandler handles bulk member import
type ImportHandler struct {
	svc      *attendance.Service
	importer *membership.Importer
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *attendance.Service, importer *membership.Importer) *ImportHandler {
	return &ImportHandler{svc: svc, importer: importer}
}

// ImportRowRequest is one member of a JSON import
type ImportRowRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ImportRequest is the JSON alternative to a CSV upload
type ImportRequest struct {
	Rows []ImportRowRequest `json:"rows"`
}

// CredentialResponse is the initial password of a created member
type CredentialResponse struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ImportResponse reports a bulk import
type ImportResponse struct {
	BatchID              string                `json:"batch_id"`
	Success              bool                  `json:"success"`
	Message              string                `json:"message"`
	TotalRows            int                   `json:"total_rows"`
	ValidRows            int                   `json:"valid_rows"`
	InvalidRows          int                   `json:"invalid_rows"`
	Errors               []membership.RowError `json:"errors,omitempty"`
	NewMembersCreated    int                   `json:"new_members_created"`
	ExistingMembersAdded int                   `json:"existing_members_added"`
	AlreadyInEvent       int                   `json:"already_in_event"`
	Projected            membership.Projection `json:"projected"`
	Credentials          []CredentialResponse  `json:"credentials,omitempty"`
}

// Import adds members from a CSV upload (multipart "file") or a JSON row list.
// A rejected batch answers 422 with every invalid row listed.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	eventID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if !requireEventOwner(w, r, h.svc, eventID) {
		return
	}

	rows, ok := h.readRows(w, r)
	if !ok {
		return
	}

	result, err := h.importer.BulkAddMembers(r.Context(), eventID, rows)
	if err != nil {
		if errors.Is(err, membership.ErrImportFailed) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondServiceError(w, err, "failed to import members")
		return
	}

	resp := ImportResponse{
		BatchID:              result.BatchID.String(),
		Success:              !result.Failed,
		Message:              result.Message,
		TotalRows:            result.TotalRows,
		ValidRows:            result.ValidRows,
		InvalidRows:          result.InvalidRows,
		Errors:               result.Errors,
		NewMembersCreated:    result.NewMembersCreated,
		ExistingMembersAdded: result.ExistingMembersAdded,
		AlreadyInEvent:       result.AlreadyInEvent,
		Projected:            result.Projected,
	}
	for _, c := range result.Credentials {
		resp.Credentials = append(resp.Credentials, CredentialResponse(c))
	}

	if result.Failed {
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *ImportHandler) readRows(w http.ResponseWriter, r *http.Request) ([]membership.ImportRow, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, ok := readUpload(w, r, "file", constants.MaxCSVSize)
		if !ok {
			return nil, false
		}
		rows, err := membership.ParseCSV(bytes.NewReader(data), h.importer.MaxRows())
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		return rows, true
	}

	var req ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return nil, false
	}
	rows := make([]membership.ImportRow, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = membership.ImportRow{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
		}
	}
	return rows, true
}
