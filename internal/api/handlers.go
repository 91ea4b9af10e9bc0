package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

type startRequest struct {
	UserContext string `json:"user_context"`
}

type chatRequest struct {
	Token   string `json:"auth_token"`
	Message string `json:"message"`
}

type referralRequest struct {
	LetterText string `json:"letter_text"`
}

// startHandler opens a consultation and returns the access token with the
// opening greeting.
func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid request body"))
		return
	}

	result, err := s.sessions.Start(r.Context(), req.UserContext)
	if err != nil {
		slog.Error("Server.startHandler: failed to start consultation", "error", err)
		s.writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(result))
}

// chatHandler advances a consultation by one patient turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid request body"))
		return
	}
	if req.Token == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("auth_token is required"))
		return
	}

	result, err := s.sessions.Chat(r.Context(), req.Token, req.Message)
	if err != nil {
		slog.Debug("Server.chatHandler: turn rejected", "error", err)
		s.writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// referralHandler parses a referral letter and issues an access token for
// the referred patient.
func (s *Server) referralHandler(w http.ResponseWriter, r *http.Request) {
	var req referralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid request body"))
		return
	}

	info, err := s.extractor.Process(r.Context(), req.LetterText)
	if err != nil {
		slog.Error("Server.referralHandler: extraction failed", "error", err)
		s.writeDomainError(w, err)
		return
	}
	token, err := s.sessions.RegisterReferral(r.Context(), info)
	if err != nil {
		slog.Error("Server.referralHandler: failed to register referral", "error", err)
		s.writeDomainError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.Success(models.ReferralResult{
		Token:          token,
		PatientName:    info.PatientName,
		DoctorName:     info.DoctorName,
		ReferralDate:   info.ReferralDate,
		ReferredTo:     info.ReferredTo,
		ReferralReason: info.ReferralReason,
	}))
}

// searchHandler lists consultations for clinicians.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := models.SearchQuery{
		PatientName: r.URL.Query().Get("patient_name"),
		SortBy:      r.URL.Query().Get("sort_by"),
		SortOrder:   r.URL.Query().Get("sort_order"),
	}
	var err error
	if q.StartDate, err = parseDateParam(r.URL.Query().Get("start_date")); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid start_date"))
		return
	}
	if q.EndDate, err = parseDateParam(r.URL.Query().Get("end_date")); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid end_date"))
		return
	}

	recs, err := s.store.SearchConsultations(q)
	if err != nil {
		slog.Error("Server.searchHandler: search failed", "error", err)
		s.writeDomainError(w, err)
		return
	}
	// Search results omit transcripts and summaries stay clinician-facing.
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(fmt.Sprintf("Found %d consultations", len(recs)), recs))
}

// detailsHandler returns one consultation with its transcript.
func (s *Server) detailsHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetConsultationByID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(rec))
}

// reportHandler renders the clinician PDF report for a consultation.
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetConsultationByID(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	ref, err := s.store.GetReferral(rec.Token)
	if err != nil {
		ref = nil
	}

	data, err := s.reports.Generate(rec, ref)
	if err != nil {
		slog.Error("Server.reportHandler: report generation failed", "error", err, "consultationID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate report"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"consultation_%s.pdf\"", id))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("Server.reportHandler: failed to write report", "error", err)
	}
}

// statisticsHandler aggregates consultation counts.
func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics()
	if err != nil {
		slog.Error("Server.statisticsHandler: statistics failed", "error", err)
		s.writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// healthHandler reports service liveness and basic operational counters.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResult{
		Status:         "healthy",
		Service:        ServiceName,
		Version:        ServiceVersion,
		DatabaseStatus: "connected",
		ActiveSessions: s.sessions.ActiveSessions(),
		UptimeSeconds:  time.Since(s.startTime).Seconds(),
	}
	status := http.StatusOK
	if stats, err := s.store.Statistics(); err != nil {
		health.Status = "degraded"
		health.DatabaseStatus = "error"
		status = http.StatusServiceUnavailable
	} else {
		health.TotalConsultations = stats.TotalConsultations
	}
	writeJSONResponse(w, status, models.Success(health))
}

// writeDomainError maps domain errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidToken), errors.Is(err, models.ErrTokenConsumed):
		writeJSONResponse(w, http.StatusUnauthorized, models.Error(err.Error()))
	case errors.Is(err, models.ErrConsultationTerminated):
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	case errors.Is(err, models.ErrConsultationNotFound), errors.Is(err, models.ErrReferralNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
	case errors.Is(err, models.ErrEmptyMessage), errors.Is(err, models.ErrEmptyReferralText):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
	}
}

// parseDateParam accepts RFC 3339 timestamps or plain dates.
func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}
