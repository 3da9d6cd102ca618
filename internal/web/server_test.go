package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

type fixedExtractor struct{}

func (fixedExtractor) ExtractEmbedding(ctx context.Context, image []byte) ([]float32, bool, error) {
	return []float32{1, 0, 0}, true, nil
}

func newTestServer(t *testing.T, ratePerMin int) (*Server, string) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Auth.JWTSecret = "router-secret"
	cfg.Attendance.CheckInRatePerMin = ratePerMin

	identities := mock.NewMockIdentityStore()
	identities.AddIdentity(database.Identity{ID: 1, Name: "정하늘", OrganizationType: "school"})
	enrollments := mock.NewMockEnrollmentStore()
	enrollments.Enroll(1, []float32{1, 0, 0})

	svc := attendance.NewService(attendance.Deps{
		Enrollments: enrollments,
		Memberships: mock.NewMockMembershipStore(),
		Records:     mock.NewMockAttendanceStore(),
		Extractor:   fixedExtractor{},
	}, attendance.OptionsFromConfig(&cfg.Attendance))

	tokens, err := middleware.NewTokenValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		t.Fatalf("NewTokenValidator: %v", err)
	}
	token, err := middleware.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 1, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	s := NewServer(cfg, Deps{Service: svc, Identities: identities, Tokens: tokens})
	t.Cleanup(s.limiter.Stop)
	return s, token
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t, 0)

	w := doRequest(s, "GET", "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("health: status %d, want 200", w.Code)
	}

	w = doRequest(s, "GET", "/api/v1/ready", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("ready without a database: status %d, want 404", w.Code)
	}
}

func TestRoutes_AttendanceRequiresToken(t *testing.T) {
	s, _ := newTestServer(t, 0)

	for _, path := range []string{"/api/v1/attendance/history", "/api/v1/attendance/stats"} {
		if w := doRequest(s, "GET", path, "", ""); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", path, w.Code)
		}
	}
	if w := doRequest(s, "POST", "/api/v1/attendance/check-in", "", `{"image":""}`); w.Code != http.StatusUnauthorized {
		t.Errorf("check-in: status %d, want 401", w.Code)
	}
}

func TestRoutes_CheckInThenHistory(t *testing.T) {
	s, token := newTestServer(t, 0)
	body := `{"image":"` + base64.StdEncoding.EncodeToString([]byte("jpeg")) + `"}`

	w := doRequest(s, "POST", "/api/v1/attendance/check-in", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("check-in: status %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(s, "GET", "/api/v1/attendance/history?limit=10", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("history: status %d", w.Code)
	}
	var page struct {
		Total int `json:"total"`
		Items []struct {
			UserName string `json:"userName"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].UserName != "정하늘" {
		t.Errorf("unexpected history %+v", page)
	}

	w = doRequest(s, "GET", "/api/v1/attendance/stats?period=year", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"period":"year"`) {
		t.Errorf("stats should echo the period, got %s", w.Body.String())
	}
}

func TestRoutes_CheckInRateLimited(t *testing.T) {
	s, token := newTestServer(t, 1)
	body := `{"image":"` + base64.StdEncoding.EncodeToString([]byte("jpeg")) + `"}`

	if w := doRequest(s, "POST", "/api/v1/attendance/check-in", token, body); w.Code != http.StatusCreated {
		t.Fatalf("first check-in: status %d", w.Code)
	}
	if w := doRequest(s, "POST", "/api/v1/attendance/check-in", token, body); w.Code != http.StatusTooManyRequests {
		t.Errorf("second check-in: status %d, want 429", w.Code)
	}
	// reads are not limited
	if w := doRequest(s, "GET", "/api/v1/attendance/history", token, ""); w.Code != http.StatusOK {
		t.Errorf("history: status %d, want 200", w.Code)
	}
}
