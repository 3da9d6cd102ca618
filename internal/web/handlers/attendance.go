package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// maxCheckInBody bounds the JSON body of a check-in (base64 image included).
const maxCheckInBody = 16 << 20

// AttendanceHandler handles check-in, history and stats endpoints
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// CheckInRequest is the check-in request body
type CheckInRequest struct {
	Image string `json:"image"`
}

// AttendanceResponse represents one attendance record
type AttendanceResponse struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	UserName         string    `json:"userName"`
	OrganizationType string    `json:"organizationType"`
	OrganizationID   *int64    `json:"organizationId"`
	CheckInTime      time.Time `json:"checkInTime"`
	Similarity       float64   `json:"similarity"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// AttendanceListResponse is one page of history
type AttendanceListResponse struct {
	Total int                  `json:"total"`
	Items []AttendanceResponse `json:"items"`
}

// StatsItem is one stats bucket
type StatsItem struct {
	Label        string  `json:"label"`
	Count        int     `json:"count"`
	Date         string  `json:"date"`
	FirstCheckIn float64 `json:"firstCheckIn"`
}

// StatsResponse holds the buckets for the requested period
type StatsResponse struct {
	Period string      `json:"period"`
	Items  []StatsItem `json:"items"`
}

// VerificationFailedResponse is the 401 body of a rejected check-in
type VerificationFailedResponse struct {
	Error      string  `json:"error"`
	Similarity float64 `json:"similarity"`
}

func toAttendanceResponse(rec database.AttendanceRecord, identity *database.Identity) AttendanceResponse {
	resp := AttendanceResponse{
		ID:               rec.ID,
		UserID:           rec.IdentityID,
		UserName:         identity.Name,
		OrganizationType: identity.OrganizationType,
		CheckInTime:      rec.CheckInTime,
		Similarity:       rec.Similarity,
		Status:           rec.Status,
		CreatedAt:        rec.CreatedAt,
	}
	if rec.OrganizationID.Valid {
		id := rec.OrganizationID.V
		resp.OrganizationID = &id
	}
	if resp.Status == "" {
		resp.Status = database.StatusCheckedIn
	}
	return resp
}

// respondCheckInError maps check-in failures to HTTP statuses.
func respondCheckInError(w http.ResponseWriter, identity *database.Identity, err error) {
	var vf *attendance.VerificationFailedError
	switch {
	case errors.As(err, &vf):
		respondJSON(w, http.StatusUnauthorized, VerificationFailedResponse{
			Error:      vf.Error(),
			Similarity: attendance.RoundSimilarity(vf.Similarity),
		})
	case errors.Is(err, attendance.ErrInvalidImageFormat):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrFaceNotDetected):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, attendance.ErrNoEnrollment):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrCheckInTooSoon):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("check-in failed for identity %d: %v", identity.ID, err)
		respondError(w, http.StatusInternalServerError, "check-in failed")
	}
}

// CheckIn verifies the posted face image and records attendance
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckInRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckInBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	result, err := h.service.CheckIn(r.Context(), identity, req.Image)
	if err != nil {
		respondCheckInError(w, identity, err)
		return
	}

	log.Printf("check-in: identity %d (%s) similarity %s",
		identity.ID, sanitizeForLog(identity.Name), attendance.FormatSimilarity(result.Record.Similarity))
	respondJSON(w, http.StatusCreated, toAttendanceResponse(result.Record, &result.Identity))
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// History returns a page of the current identity's check-ins
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	page, err := h.service.History(r.Context(), identity.ID, limit, offset)
	if err != nil {
		log.Printf("history failed for identity %d: %v", identity.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance history")
		return
	}

	resp := AttendanceListResponse{Total: page.Total, Items: make([]AttendanceResponse, 0, len(page.Items))}
	for _, rec := range page.Items {
		resp.Items = append(resp.Items, toAttendanceResponse(rec, identity))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Stats returns the current identity's check-ins bucketed by period
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = attendance.PeriodDay
	}

	report, err := h.service.Stats(r.Context(), identity.ID, period)
	if err != nil {
		log.Printf("stats failed for identity %d: %v", identity.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load attendance stats")
		return
	}

	resp := StatsResponse{Period: report.Period, Items: make([]StatsItem, 0, len(report.Items))}
	for _, b := range report.Items {
		resp.Items = append(resp.Items, StatsItem{
			Label:        b.Label,
			Count:        b.Count,
			Date:         b.Key,
			FirstCheckIn: b.FirstCheckIn,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
