// Package store provides persistence for referral tokens, consultations, and
// their transcripts, with in-memory, SQLite, and PostgreSQL backends.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// Store defines the persistence operations the service needs. Message
// appends are idempotent on (consultation, seq) so a retried turn never
// duplicates transcript rows.
type Store interface {
	// CreateReferral stores a new access token and its referral fields.
	CreateReferral(rec *models.ReferralRecord) error
	// GetReferral retrieves a token record, or
	// models.ErrInvalidToken when no such token exists.
	GetReferral(token string) (*models.ReferralRecord, error)
	// ConsumeToken marks a token as used.
	ConsumeToken(token string) error
	// CreateConsultation stores a new consultation record.
	CreateConsultation(rec *models.ConsultationRecord) error
	// GetConsultationByToken retrieves the consultation opened with the
	// given token, or models.ErrConsultationNotFound.
	GetConsultationByToken(token string) (*models.ConsultationRecord, error)
	// GetConsultationByID retrieves a consultation with its transcript,
	// or models.ErrConsultationNotFound.
	GetConsultationByID(id string) (*models.ConsultationRecord, error)
	// AppendMessage adds one transcript message to a consultation.
	AppendMessage(consultationID string, msg models.Message) error
	// UpdateConsultation overwrites the mutable fields of a consultation.
	UpdateConsultation(rec *models.ConsultationRecord) error
	// SearchConsultations lists consultations matching the query, without
	// transcripts.
	SearchConsultations(q models.SearchQuery) ([]*models.ConsultationRecord, error)
	// Statistics aggregates counts over all consultations.
	Statistics() (*models.Statistics, error)
	// Close releases any resources held by the store.
	Close() error
}

// InMemoryStore implements Store with maps guarded by a mutex. It backs tests
// and development runs.
type InMemoryStore struct {
	mu            sync.RWMutex
	referrals     map[string]*models.ReferralRecord
	consultations map[string]*models.ConsultationRecord
	byToken       map[string]string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		referrals:     make(map[string]*models.ReferralRecord),
		consultations: make(map[string]*models.ConsultationRecord),
		byToken:       make(map[string]string),
	}
}

// CreateReferral stores a new token record.
func (s *InMemoryStore) CreateReferral(rec *models.ReferralRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.referrals[rec.Token]; ok {
		return fmt.Errorf("InMemoryStore.CreateReferral: token already exists")
	}
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.referrals[rec.Token] = &cp
	return nil
}

// GetReferral retrieves a token record.
func (s *InMemoryStore) GetReferral(token string) (*models.ReferralRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.referrals[token]
	if !ok {
		return nil, models.ErrInvalidToken
	}
	cp := *rec
	return &cp, nil
}

// ConsumeToken marks a token as used.
func (s *InMemoryStore) ConsumeToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.referrals[token]
	if !ok {
		return models.ErrInvalidToken
	}
	rec.Consumed = true
	return nil
}

// CreateConsultation stores a new consultation record.
func (s *InMemoryStore) CreateConsultation(rec *models.ConsultationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consultations[rec.ID]; ok {
		return fmt.Errorf("InMemoryStore.CreateConsultation: id already exists")
	}
	cp := cloneConsultation(rec)
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now().UTC()
	}
	s.consultations[rec.ID] = cp
	s.byToken[rec.Token] = rec.ID
	return nil
}

// GetConsultationByToken retrieves the consultation opened with a token.
func (s *InMemoryStore) GetConsultationByToken(token string) (*models.ConsultationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, models.ErrConsultationNotFound
	}
	return cloneConsultation(s.consultations[id]), nil
}

// GetConsultationByID retrieves a consultation with its transcript.
func (s *InMemoryStore) GetConsultationByID(id string) (*models.ConsultationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.consultations[id]
	if !ok {
		return nil, models.ErrConsultationNotFound
	}
	return cloneConsultation(rec), nil
}

// AppendMessage adds one transcript message, ignoring a seq that was
// already stored.
func (s *InMemoryStore) AppendMessage(consultationID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.consultations[consultationID]
	if !ok {
		return models.ErrConsultationNotFound
	}
	for _, existing := range rec.Messages {
		if existing.Seq == msg.Seq {
			return nil
		}
	}
	rec.Messages = append(rec.Messages, msg)
	sort.Slice(rec.Messages, func(i, j int) bool { return rec.Messages[i].Seq < rec.Messages[j].Seq })
	return nil
}

// UpdateConsultation overwrites the mutable fields of a consultation.
func (s *InMemoryStore) UpdateConsultation(rec *models.ConsultationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.consultations[rec.ID]
	if !ok {
		return models.ErrConsultationNotFound
	}
	existing.QuestionsAnswered = rec.QuestionsAnswered
	existing.SummaryConfirmed = rec.SummaryConfirmed
	existing.DoctorSummary = rec.DoctorSummary
	existing.PatientSummary = rec.PatientSummary
	existing.UrgencyLevel = rec.UrgencyLevel
	existing.TerminateReason = rec.TerminateReason
	existing.Completed = rec.Completed
	existing.CompletedAt = rec.CompletedAt
	return nil
}

// SearchConsultations lists consultations matching the query, newest first
// by default. Transcripts are omitted.
func (s *InMemoryStore) SearchConsultations(q models.SearchQuery) ([]*models.ConsultationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ConsultationRecord
	for _, rec := range s.consultations {
		if !matchesQuery(rec, q) {
			continue
		}
		cp := cloneConsultation(rec)
		cp.Messages = nil
		out = append(out, cp)
	}
	sortConsultations(out, q)
	return out, nil
}

// Statistics aggregates counts over all consultations.
func (s *InMemoryStore) Statistics() (*models.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Statistics{UrgencyBreakdown: make(map[models.UrgencyLevel]int)}
	for _, rec := range s.consultations {
		stats.TotalConsultations++
		if rec.Completed {
			stats.CompletedConsultations++
		} else {
			stats.PendingConsultations++
		}
		if rec.UrgencyLevel != "" {
			stats.UrgencyBreakdown[rec.UrgencyLevel]++
		}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func cloneConsultation(rec *models.ConsultationRecord) *models.ConsultationRecord {
	cp := *rec
	cp.Messages = append([]models.Message(nil), rec.Messages...)
	return &cp
}

func matchesQuery(rec *models.ConsultationRecord, q models.SearchQuery) bool {
	if q.PatientName != "" && !strings.Contains(strings.ToLower(rec.PatientName), strings.ToLower(q.PatientName)) {
		return false
	}
	if q.StartDate != nil && rec.StartedAt.Before(*q.StartDate) {
		return false
	}
	if q.EndDate != nil && rec.StartedAt.After(*q.EndDate) {
		return false
	}
	return true
}

// sortConsultations orders results over the same columns the SQL backends
// accept, descending unless asc is requested.
func sortConsultations(recs []*models.ConsultationRecord, q models.SearchQuery) {
	ascending := func(i, j int) bool {
		a, b := recs[i], recs[j]
		switch q.SortBy {
		case "patient_name":
			return a.PatientName < b.PatientName
		case "urgency_level":
			return a.UrgencyLevel < b.UrgencyLevel
		case "completed_at":
			switch {
			case a.CompletedAt == nil:
				return b.CompletedAt != nil
			case b.CompletedAt == nil:
				return false
			default:
				return a.CompletedAt.Before(*b.CompletedAt)
			}
		default:
			return a.StartedAt.Before(b.StartedAt)
		}
	}
	less := func(i, j int) bool { return ascending(j, i) }
	if strings.EqualFold(q.SortOrder, "asc") {
		less = ascending
	}
	sort.Slice(recs, less)
}
