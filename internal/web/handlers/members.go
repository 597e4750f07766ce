package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/veriface/internal/attendance"
	"github.com/kozaktomas/veriface/internal/constants"
)

// MembersHandler handles reference face enrollment
type MembersHandler struct {
	svc      *attendance.Service
	embedder FaceEmbedder
}

// NewMembersHandler creates a new members handler
func NewMembersHandler(svc *attendance.Service, embedder FaceEmbedder) *MembersHandler {
	return &MembersHandler{svc: svc, embedder: embedder}
}

// EnrollRequest is the JSON body of PUT /members/{id}/embedding
type EnrollRequest struct {
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
}

// LookAlikeResponse is another member whose face resembles the enrolled one
type LookAlikeResponse struct {
	MemberID   int64   `json:"member_id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// EnrollResponse reports a stored reference embedding
type EnrollResponse struct {
	MemberID   int64               `json:"member_id"`
	LookAlikes []LookAlikeResponse `json:"look_alikes"`
}

// Enroll stores the acting member's own reference embedding, either given
// directly as JSON or computed from a multipart "file" photo showing exactly
// one face.
func (h *MembersHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseIDParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	actingID, ok := actingMember(w, r)
	if !ok {
		return
	}
	if actingID != memberID {
		log.Printf("member %d tried to enroll member %d", actingID, memberID)
		respondError(w, http.StatusForbidden, "members may only enroll their own face")
		return
	}

	var embedding []float32
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, ok := readUpload(w, r, "file", constants.MaxUploadSize)
		if !ok {
			return
		}
		var err error
		embedding, err = h.embedder.EmbedSingleFace(r.Context(), data)
		if err != nil {
			respondEmbeddingError(w, err)
			return
		}
	} else {
		var req EnrollRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		embedding = req.Embedding
	}

	result, err := h.svc.Enroll(r.Context(), memberID, embedding)
	if err != nil {
		respondServiceError(w, err, "failed to enroll member")
		return
	}

	resp := EnrollResponse{
		MemberID:   result.MemberID,
		LookAlikes: make([]LookAlikeResponse, len(result.LookAlikes)),
	}
	for i, l := range result.LookAlikes {
		resp.LookAlikes[i] = LookAlikeResponse{
			MemberID:   l.MemberID,
			Name:       l.Name,
			Similarity: l.Similarity,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
