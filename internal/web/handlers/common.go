package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/database"
	"github.com/kozaktomas/veriface/internal/fingerprint"
	"github.com/kozaktomas/veriface/internal/membership"
	"github.com/kozaktomas/veriface/internal/web/middleware"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxJSONBody caps JSON request bodies. An embedding of 512 floats fits comfortably.
const maxJSONBody = 1 << 20

// validate checks the `validate` tags of request bodies.
var validate = validator.New(validator.WithRequiredStructEnabled())

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps a domain error to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, database.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrNoEnrolledCandidates):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrNotRecognized):
		return http.StatusUnauthorized
	case errors.Is(err, attendance.ErrInvalidThreshold),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrInvalidEmbedding),
		errors.Is(err, attendance.ErrInvalidWindow),
		errors.Is(err, attendance.ErrInvalidInput),
		errors.Is(err, membership.ErrTooManyRows),
		errors.Is(err, membership.ErrMissingColumns),
		errors.Is(err, fingerprint.ErrNoFaceDetected),
		errors.Is(err, fingerprint.ErrMultipleFacesDetected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError maps err to a status and writes it. Internal errors are
// logged and replaced with fallback so storage details do not leak.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

// parseIDParam reads a positive int64 chi URL parameter.
func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}

// decodeAndValidate decodes a JSON body and checks its struct tags, writing
// 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(w, r, v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", strings.ToLower(verrs[0].Field())))
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// actingMember returns the member id set by middleware.RequireMember, writing
// 401 when it is missing.
func actingMember(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetMemberFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return id, true
}

// requireEventOwner writes 401, 403 or 404 and returns false unless the
// acting member owns the event.
func requireEventOwner(w http.ResponseWriter, r *http.Request, svc *attendance.Service, eventID int64) bool {
	actingID, ok := actingMember(w, r)
	if !ok {
		return false
	}
	if err := svc.AuthorizeOwner(r.Context(), actingID, eventID); err != nil {
		respondServiceError(w, err, "failed to authorize request")
		return false
	}
	return true
}

// requireSessionOwner is requireEventOwner for the event a session belongs to.
func requireSessionOwner(w http.ResponseWriter, r *http.Request, svc *attendance.Service, sessionID int64) bool {
	actingID, ok := actingMember(w, r)
	if !ok {
		return false
	}
	if err := svc.AuthorizeSessionOwner(r.Context(), actingID, sessionID); err != nil {
		respondServiceError(w, err, "failed to authorize request")
		return false
	}
	return true
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports service health including database reachability.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			log.Printf("health check: database ping failed: %v", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unavailable",
				"database": "unreachable",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
