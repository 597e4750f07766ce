package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/fingerprint"
)

// FaceEmbedder turns an uploaded photo into face embeddings.
type FaceEmbedder interface {
	EmbedFaces(ctx context.Context, imageData []byte) (*fingerprint.FaceResult, error)
	EmbedSingleFace(ctx context.Context, imageData []byte) ([]float32, error)
}

// CheckInHandler handles face recognition check-in endpoints
type CheckInHandler struct {
	svc       *attendance.Service
	embedder  FaceEmbedder
	threshold float64
}

// NewCheckInHandler creates a new check-in handler. threshold is used when a
// request does not carry its own.
func NewCheckInHandler(svc *attendance.Service, embedder FaceEmbedder, threshold float64) *CheckInHandler {
	return &CheckInHandler{
		svc:       svc,
		embedder:  embedder,
		threshold: threshold,
	}
}

// CheckInRequest is the body of POST /sessions/{id}/checkin
type CheckInRequest struct {
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
	Threshold *float64  `json:"threshold" validate:"omitempty,gte=0,lte=1"`
}

// MatchResponse describes a recognized member
type MatchResponse struct {
	MemberID     int64     `json:"member_id"`
	MemberName   string    `json:"member_name"`
	Similarity   float64   `json:"similarity"`
	AttendanceID int64     `json:"attendance_id"`
	Status       string    `json:"status"`
	CheckInTime  time.Time `json:"check_in_time"`
}

// GroupFaceResponse is the outcome for one face of a group photo
type GroupFaceResponse struct {
	Index  int            `json:"index"`
	BBox   []float64      `json:"bbox,omitempty"`
	RelBox []float64      `json:"bbox_rel,omitempty"` // 0-1 of width/height
	Match  *MatchResponse `json:"match,omitempty"`
	Error  string         `json:"error,omitempty"`
	Status int            `json:"status"`
}

// GroupCheckInResponse reports every face found in a group photo
type GroupCheckInResponse struct {
	Faces      []GroupFaceResponse `json:"faces"`
	Recognized int                 `json:"recognized"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
}

func matchToResponse(m *attendance.MatchResult) *MatchResponse {
	return &MatchResponse{
		MemberID:     m.MemberID,
		MemberName:   m.MemberName,
		Similarity:   m.Similarity,
		AttendanceID: m.AttendanceID,
		Status:       m.Status.String(),
		CheckInTime:  m.CheckInTime,
	}
}

// Embedding checks in the member matching a precomputed query embedding
func (h *CheckInHandler) Embedding(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req CheckInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	threshold := h.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	h.checkIn(w, r, sessionID, req.Embedding, threshold)
}

// Photo checks in the single person shown in an uploaded photo
func (h *CheckInHandler) Photo(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	data, threshold, ok := h.readPhoto(w, r)
	if !ok {
		return
	}

	query, err := h.embedder.EmbedSingleFace(r.Context(), data)
	if err != nil {
		respondEmbeddingError(w, err)
		return
	}

	h.checkIn(w, r, sessionID, query, threshold)
}

// Group checks in every recognized face of an uploaded group photo. Faces
// are independent: one unrecognized face does not fail the request.
func (h *CheckInHandler) Group(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	data, threshold, ok := h.readPhoto(w, r)
	if !ok {
		return
	}

	faces, err := h.embedder.EmbedFaces(r.Context(), data)
	if err != nil {
		respondEmbeddingError(w, err)
		return
	}
	if len(faces.Faces) == 0 {
		respondError(w, http.StatusBadRequest, fingerprint.ErrNoFaceDetected.Error())
		return
	}

	queries := make([][]float32, len(faces.Faces))
	for i, f := range faces.Faces {
		queries[i] = f.Embedding
	}
	outcomes := h.svc.CheckInFaces(r.Context(), sessionID, queries, threshold)

	resp := GroupCheckInResponse{
		Faces:  make([]GroupFaceResponse, len(outcomes)),
		Width:  faces.Width,
		Height: faces.Height,
	}
	for i, o := range outcomes {
		rel := faces.Faces[i].BBox.Relative(faces.Width, faces.Height)
		face := GroupFaceResponse{Index: o.Index, BBox: faces.Faces[i].BBox[:], RelBox: rel[:]}
		if o.Err != nil {
			face.Status = errorStatus(o.Err)
			if face.Status == http.StatusInternalServerError {
				log.Printf("group check-in face %d in session %d: %v", i, sessionID, o.Err)
				face.Error = "failed to check in"
			} else {
				face.Error = o.Err.Error()
			}
		} else {
			face.Status = http.StatusOK
			face.Match = matchToResponse(o.Result)
			resp.Recognized++
		}
		resp.Faces[i] = face
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *CheckInHandler) checkIn(w http.ResponseWriter, r *http.Request, sessionID int64, query []float32, threshold float64) {
	result, err := h.svc.CheckInByEmbedding(r.Context(), sessionID, query, threshold)
	if err != nil {
		respondServiceError(w, err, "failed to check in")
		return
	}
	respondJSON(w, http.StatusOK, matchToResponse(result))
}

// readPhoto reads the "file" part and optional "threshold" field of a multipart upload.
func (h *CheckInHandler) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, float64, bool) {
	data, ok := readUpload(w, r, "file", constants.MaxUploadSize)
	if !ok {
		return nil, 0, false
	}

	threshold := h.threshold
	if v := r.FormValue("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, attendance.ErrInvalidThreshold.Error())
			return nil, 0, false
		}
		threshold = parsed
	}
	return data, threshold, true
}

// readUpload parses a multipart form and returns the content of one file field.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxSize int64) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, false
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return nil, false
	}
	return data, true
}

// respondEmbeddingError distinguishes bad photos from an unreachable embedding service.
func respondEmbeddingError(w http.ResponseWriter, err error) {
	if errors.Is(err, fingerprint.ErrNoFaceDetected) || errors.Is(err, fingerprint.ErrMultipleFacesDetected) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("embedding service: %v", err)
	respondError(w, http.StatusBadGateway, "face embedding service unavailable")
}
