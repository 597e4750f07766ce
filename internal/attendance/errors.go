package attendance

import (
	"errors"

	"github.com/kozaktomas/veriface/internal/database"
)

var (
	// ErrNotFound aliases database.ErrNotFound so callers need one import.
	ErrNotFound = database.ErrNotFound

	// ErrConflict aliases database.ErrConflict.
	ErrConflict = database.ErrConflict

	// ErrForbidden is returned when the acting member does not own the event.
	ErrForbidden = errors.New("only the event owner may do this")

	// ErrNoEnrolledCandidates is returned when nobody on the roster has a reference embedding.
	ErrNoEnrolledCandidates = errors.New("no enrolled candidates in session")

	// ErrNotRecognized is returned when no enrolled candidate reaches the threshold.
	ErrNotRecognized = errors.New("face not recognized")

	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrInvalidEmbedding = errors.New("invalid embedding")
	ErrInvalidWindow    = errors.New("end time is before start time")
	ErrInvalidInput     = errors.New("invalid input")
)
