package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// PreparedImage is an image ready for upload to the embedding service.
type PreparedImage struct {
	Data   []byte
	Width  int
	Height int
}

// PrepareImage decodes data and, when either side exceeds maxSize,
// downscales it keeping the aspect ratio and re-encodes it as JPEG.
// Smaller images are passed through untouched.
func PrepareImage(data []byte, maxSize int) (*PreparedImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return &PreparedImage{Data: data, Width: width, Height: height}, nil
	}

	newWidth, newHeight := maxSize, maxSize
	if width > height {
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return &PreparedImage{Data: buf.Bytes(), Width: newWidth, Height: newHeight}, nil
}

// detectMIMEType sniffs the image format from its magic bytes
func detectMIMEType(data []byte) string {
	switch {
	case len(data) < 8:
		return "application/octet-stream"
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return "image/png"
	case string(data[:4]) == "GIF8":
		return "image/gif"
	case data[0] == 'B' && data[1] == 'M':
		return "image/bmp"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}
