package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

var kst = time.FixedZone("UTC+9", 9*3600)

// testIdentity is the identity attached to requests by requestWithIdentity
func testIdentity() *database.Identity {
	return &database.Identity{ID: 42, Name: "박지훈", OrganizationType: "company"}
}

// stubExtractor returns a fixed probe for every image
type stubExtractor struct {
	embedding []float32
	found     bool
	err       error
}

func (s *stubExtractor) ExtractEmbedding(ctx context.Context, image []byte) ([]float32, bool, error) {
	return s.embedding, s.found, s.err
}

// handlerFixture wires an AttendanceHandler to in-memory stores
type handlerFixture struct {
	handler     *AttendanceHandler
	extractor   *stubExtractor
	enrollments *mock.MockEnrollmentStore
	memberships *mock.MockMembershipStore
	records     *mock.MockAttendanceStore
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		extractor:   &stubExtractor{embedding: []float32{1, 0}, found: true},
		enrollments: mock.NewMockEnrollmentStore(),
		memberships: mock.NewMockMembershipStore(),
		records:     mock.NewMockAttendanceStore(),
	}
	now := time.Date(2024, 3, 15, 0, 30, 0, 0, time.UTC)
	svc := attendance.NewService(attendance.Deps{
		Enrollments: f.enrollments,
		Memberships: f.memberships,
		Records:     f.records,
		Extractor:   f.extractor,
		Scorer:      facematch.CosineScorer,
	}, attendance.Options{
		Threshold:           0.70,
		Location:            kst,
		DefaultHistoryLimit: 50,
		MaxHistoryLimit:     200,
		Now:                 func() time.Time { return now },
	})
	f.handler = NewAttendanceHandler(svc)
	return f
}

// requestWithIdentity creates a request with the test identity in context
func requestWithIdentity(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.SetIdentityInContext(req.Context(), testIdentity()))
}

func encodedImage() string {
	return base64.StdEncoding.EncodeToString([]byte("fake jpeg"))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
