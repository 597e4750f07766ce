// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchThreshold is the default minimum cosine similarity for a
	// query embedding to be accepted as a member of the session roster
	DefaultMatchThreshold = 0.5

	// LookAlikeSimilarity is the cosine similarity above which two enrolled
	// members are reported as possible look-alikes during enrollment
	LookAlikeSimilarity = 0.75

	// LookAlikeSearchLimit is the number of neighbors requested from the
	// look-alike index per enrollment
	LookAlikeSearchLimit = 10
)

// Embedding constants
const (
	// FaceEmbeddingDim is the default dimension of face embeddings (512 for buffalo_l/ResNet100)
	FaceEmbeddingDim = 512

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding service
	MaxImageSize = 1920

	// MaxUploadSize is the maximum accepted image upload in bytes
	MaxUploadSize = 20 << 20

	// FaceDedupIoU is the box overlap above which two detections are treated as the same face
	FaceDedupIoU = 0.5

	// EmbeddingRequestTimeout bounds a single call to the embedding service
	EmbeddingRequestTimeout = 60 * time.Second
)

// Import constants
const (
	// MaxImportRows is the maximum number of rows accepted by a bulk membership import
	MaxImportRows = 500

	// MaxCSVSize is the maximum accepted CSV upload in bytes
	MaxCSVSize = 20 << 20
)

// Credential constants
const (
	// DefaultPasswordLength is the length of generated passwords for imported members
	DefaultPasswordLength = 14

	// PasswordSymbols is the fixed symbol set used by the password generator
	PasswordSymbols = "!@#$%^&*"
)
