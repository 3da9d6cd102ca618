// Package faceembed talks to the face embedding server.
package faceembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultURL   = "http://localhost:8000"
	defaultModel = "buffalo_l" // model name for reference only
)

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Client computes face embeddings using the embedding server.
// It implements facematch.Extractor.
type Client struct {
	baseURL      string
	model        string
	maxImageSize int
	client       *http.Client
}

// NewClient creates a new embedding client. maxImageSize > 0 downscales
// images so their longer side fits before upload.
func NewClient(baseURL, model string, maxImageSize int) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		model:        model,
		maxImageSize: maxImageSize,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Model returns the model name being used
func (c *Client) Model() string {
	return c.model
}

// postMultipartImage posts the image as the "file" form field with a sniffed Content-Type.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
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

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (c *Client) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", c.prepare(imageData))
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &faceResp, nil
}

// ExtractEmbedding returns the embedding of the most confidently detected face.
// found is false when the server detects no face.
func (c *Client) ExtractEmbedding(ctx context.Context, imageData []byte) ([]float32, bool, error) {
	resp, err := c.ComputeFaceEmbeddings(ctx, imageData)
	if err != nil {
		return nil, false, err
	}
	face := BestFace(resp.Faces)
	if face == nil {
		return nil, false, nil
	}
	return face.Embedding, true, nil
}

// BestFace picks the face with the highest detection score, ignoring faces
// without an embedding. Returns nil when nothing qualifies.
func BestFace(faces []FaceDetection) *FaceDetection {
	var best *FaceDetection
	for i := range faces {
		f := &faces[i]
		if len(f.Embedding) == 0 {
			continue
		}
		if best == nil || f.DetScore > best.DetScore {
			best = f
		}
	}
	return best
}

// prepare downscales the image when configured. Images the decoder does not
// understand are sent unchanged; the server decides whether they hold a face.
func (c *Client) prepare(imageData []byte) []byte {
	if c.maxImageSize <= 0 {
		return imageData
	}
	resized, err := ResizeImage(imageData, c.maxImageSize)
	if err != nil {
		log.Printf("faceembed: sending original image: %v", err)
		return imageData
	}
	return resized
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
