package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/veriface/internal/constants"
	"github.com/kozaktomas/veriface/internal/facematch"
)

const defaultEmbeddingURL = "http://localhost:8000"

var (
	// ErrNoFaceDetected is returned when a photo that must show one face shows none.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFacesDetected is returned when a photo that must show one face shows several.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
)

// EmbeddingClient talks to the face embedding service.
type EmbeddingClient struct {
	baseURL      string
	maxImageSize int
	client       *http.Client
}

// NewEmbeddingClient creates a new embedding client. Images larger than
// maxImageSize on either side are downscaled before upload.
func NewEmbeddingClient(baseURL string, maxImageSize int) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if maxImageSize <= 0 {
		maxImageSize = constants.MaxImageSize
	}
	return &EmbeddingClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		maxImageSize: maxImageSize,
		client:       &http.Client{Timeout: constants.EmbeddingRequestTimeout},
	}
}

// FaceDetection is a single face as reported by the embedding service
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse is the body returned by /embed/face
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// FaceResult holds the faces found in one photo. Boxes are in pixels of
// the uploaded (possibly downscaled) image of Width x Height.
type FaceResult struct {
	Faces  []facematch.Face
	Width  int
	Height int
}

// postMultipartImage posts the image as the "file" form field and returns the response body.
func (c *EmbeddingClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ComputeFaceEmbeddings posts the image as-is and returns the raw detections.
func (c *EmbeddingClient) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// EmbedFaces downscales the photo if needed, detects every face and drops
// duplicate detections of the same face.
func (c *EmbeddingClient) EmbedFaces(ctx context.Context, imageData []byte) (*FaceResult, error) {
	img, err := PrepareImage(imageData, c.maxImageSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.ComputeFaceEmbeddings(ctx, img.Data)
	if err != nil {
		return nil, err
	}

	faces := make([]facematch.Face, 0, len(resp.Faces))
	for i, d := range resp.Faces {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("face %d: empty embedding returned", i)
		}
		box, _ := facematch.NewBBox(d.BBox)
		faces = append(faces, facematch.Face{
			Embedding: d.Embedding,
			BBox:      box,
			DetScore:  d.DetScore,
		})
	}

	return &FaceResult{
		Faces:  facematch.DedupeFaces(faces, constants.FaceDedupIoU),
		Width:  img.Width,
		Height: img.Height,
	}, nil
}

// EmbedSingleFace returns the embedding of the only face in the photo.
func (c *EmbeddingClient) EmbedSingleFace(ctx context.Context, imageData []byte) ([]float32, error) {
	result, err := c.EmbedFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}

	switch len(result.Faces) {
	case 0:
		return nil, ErrNoFaceDetected
	case 1:
		return result.Faces[0].Embedding, nil
	default:
		return nil, fmt.Errorf("%w: %d faces", ErrMultipleFacesDetected, len(result.Faces))
	}
}
