package faceembed

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func createTestImage(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// newFaceServer returns a server answering /embed/face with resp and
// recording the uploaded file.
func newFaceServer(t *testing.T, status int, resp any, uploaded *[]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if uploaded != nil {
			*uploaded = data
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ExtractEmbedding_PicksBestFace(t *testing.T) {
	resp := FaceResponse{
		FacesCount: 2,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 3, Embedding: []float32{1, 0, 0}, DetScore: 0.61},
			{FaceIndex: 1, Dim: 3, Embedding: []float32{0, 1, 0}, DetScore: 0.93},
		},
		Model: "buffalo_l",
	}
	srv := newFaceServer(t, http.StatusOK, resp, nil)

	c := NewClient(srv.URL+"/", "", 0)
	emb, found, err := c.ExtractEmbedding(context.Background(), createTestImage(8, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected a face")
	}
	if len(emb) != 3 || emb[1] != 1 {
		t.Errorf("expected embedding of the highest scored face, got %v", emb)
	}
}

func TestClient_ExtractEmbedding_NoFace(t *testing.T) {
	srv := newFaceServer(t, http.StatusOK, FaceResponse{FacesCount: 0, Faces: []FaceDetection{}}, nil)

	c := NewClient(srv.URL, "buffalo_l", 0)
	emb, found, err := c.ExtractEmbedding(context.Background(), createTestImage(8, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found || emb != nil {
		t.Errorf("expected no face, got found=%v emb=%v", found, emb)
	}
}

func TestClient_ExtractEmbedding_ServerError(t *testing.T) {
	srv := newFaceServer(t, http.StatusInternalServerError, map[string]string{"detail": "model not loaded"}, nil)

	c := NewClient(srv.URL, "", 0)
	_, found, err := c.ExtractEmbedding(context.Background(), createTestImage(8, 8))
	if err == nil {
		t.Fatal("expected error")
	}
	if found {
		t.Error("server error must not report a face")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestClient_ResizesBeforeUpload(t *testing.T) {
	var uploaded []byte
	srv := newFaceServer(t, http.StatusOK, FaceResponse{}, &uploaded)

	c := NewClient(srv.URL, "", 64)
	if _, err := c.ComputeFaceEmbeddings(context.Background(), createTestImage(256, 128)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(uploaded))
	if err != nil {
		t.Fatalf("uploaded data is not a JPEG: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Errorf("expected 64x32 upload, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestClient_UndecodableImageSentAsIs(t *testing.T) {
	var uploaded []byte
	srv := newFaceServer(t, http.StatusOK, FaceResponse{}, &uploaded)

	raw := []byte("definitely not an image")
	c := NewClient(srv.URL, "", 64)
	if _, err := c.ComputeFaceEmbeddings(context.Background(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(uploaded, raw) {
		t.Errorf("expected original bytes to be uploaded")
	}
}

func TestBestFace(t *testing.T) {
	tests := []struct {
		name      string
		faces     []FaceDetection
		wantIndex int
	}{
		{"none", nil, -1},
		{"single", []FaceDetection{{FaceIndex: 0, Embedding: []float32{1}, DetScore: 0.5}}, 0},
		{"highest score wins", []FaceDetection{
			{FaceIndex: 0, Embedding: []float32{1}, DetScore: 0.7},
			{FaceIndex: 1, Embedding: []float32{1}, DetScore: 0.9},
			{FaceIndex: 2, Embedding: []float32{1}, DetScore: 0.8},
		}, 1},
		{"skips empty embedding", []FaceDetection{
			{FaceIndex: 0, DetScore: 0.99},
			{FaceIndex: 1, Embedding: []float32{1}, DetScore: 0.4},
		}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BestFace(tc.faces)
			if tc.wantIndex < 0 {
				if got != nil {
					t.Errorf("expected nil, got face %d", got.FaceIndex)
				}
				return
			}
			if got == nil || got.FaceIndex != tc.wantIndex {
				t.Errorf("expected face %d, got %+v", tc.wantIndex, got)
			}
		})
	}
}

func TestResizeImage(t *testing.T) {
	t.Run("small image unchanged", func(t *testing.T) {
		data := createTestImage(32, 16)
		out, err := ResizeImage(data, 64)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, data) {
			t.Error("expected small image to be returned unchanged")
		}
	})

	t.Run("portrait", func(t *testing.T) {
		out, err := ResizeImage(createTestImage(100, 400), 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("decode config: %v", err)
		}
		if cfg.Width != 25 || cfg.Height != 100 {
			t.Errorf("expected 25x100, got %dx%d", cfg.Width, cfg.Height)
		}
	})

	t.Run("invalid data", func(t *testing.T) {
		if _, err := ResizeImage([]byte("nope"), 100); err == nil {
			t.Error("expected error for invalid image data")
		}
	})
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.want {
				t.Errorf("detectMIMEType = %q, want %q", got, tc.want)
			}
		})
	}
}
