package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
	"github.com/SomnoHealth/ConsultFlow/internal/store"
)

// SessionStore owns the live consultations. It validates tokens, holds a
// per-token lock across a full turn so concurrent requests on the same token
// serialize, and writes every appended message through to the store.
type SessionStore struct {
	store  store.Store
	engine *ConsultationEngine

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu             sync.Mutex
	consultationID string
	state          *models.ConsultationState
	startedAt      time.Time
}

// NewSessionStore creates a session store over the given persistence layer
// and engine.
func NewSessionStore(st store.Store, engine *ConsultationEngine) *SessionStore {
	return &SessionStore{
		store:    st,
		engine:   engine,
		sessions: make(map[string]*session),
	}
}

// Start issues a fresh token, opens a consultation, and returns the greeting.
// The optional context note carries referral details forward into every
// reasoning call.
func (s *SessionStore) Start(ctx context.Context, contextNote string) (*models.StartResult, error) {
	token := uuid.NewString()
	patientName := models.PatientNameFromContext(contextNote)
	if err := s.store.CreateReferral(&models.ReferralRecord{
		Token:       token,
		PatientName: patientName,
		ContextNote: contextNote,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("SessionStore.Start: failed to create token: %w", err)
	}

	sess := &session{}
	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.openConsultation(sess, token, patientName, contextNote); err != nil {
		s.evict(token)
		return nil, fmt.Errorf("SessionStore.Start: %w", err)
	}
	greeting := sess.state.Messages[0].Content
	slog.Info("SessionStore.Start: consultation opened", "consultationID", sess.consultationID, "patientName", patientName)
	return &models.StartResult{Token: token, AgentText: greeting}, nil
}

// RegisterReferral issues a token for extracted referral-letter fields. The
// consultation itself opens on the first chat turn.
func (s *SessionStore) RegisterReferral(ctx context.Context, info *models.ReferralInfo) (string, error) {
	token := uuid.NewString()
	if err := s.store.CreateReferral(&models.ReferralRecord{
		Token:          token,
		PatientName:    info.PatientName,
		DoctorName:     info.DoctorName,
		ReferralDate:   info.ReferralDate,
		ReferredTo:     info.ReferredTo,
		ReferralReason: info.ReferralReason,
		ContextNote:    contextNoteFromReferral(info),
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return "", fmt.Errorf("SessionStore.RegisterReferral: failed to create token: %w", err)
	}
	slog.Info("SessionStore.RegisterReferral: token issued", "patientName", info.PatientName)
	return token, nil
}

// Chat advances the consultation behind a token by one patient turn. The
// first turn on a referral token opens the consultation and returns the
// greeting without processing the message.
func (s *SessionStore) Chat(ctx context.Context, token, message string) (*models.ChatResult, error) {
	ref, err := s.store.GetReferral(token)
	if err != nil {
		return nil, err
	}
	if ref.Consumed {
		return nil, models.ErrTokenConsumed
	}

	sess, opened, err := s.acquire(token, ref)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if opened {
		return &models.ChatResult{AgentText: sess.state.Messages[0].Content}, nil
	}

	result, err := s.engine.Advance(ctx, sess.state, message)
	if err != nil {
		return nil, err
	}
	s.persistTurn(token, sess, result)

	res := &models.ChatResult{
		AgentText:         result.AgentText,
		Terminal:          result.Terminated,
		QuestionsAnswered: sess.state.QuestionsAnswered,
	}
	if result.Terminated {
		res.DoctorSummary = sess.state.DoctorSummary
		res.PatientSummary = sess.state.PatientSummary
		res.UrgencyLevel = sess.state.UrgencyLevel
	}
	return res, nil
}

// ActiveSessions reports how many consultations are currently live.
func (s *SessionStore) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// acquire returns the locked session for a token, loading or opening the
// consultation as needed. opened reports that this call created it. The
// placeholder registered under s.mu makes concurrent turns on the same
// token queue on the session lock rather than race on creation.
func (s *SessionStore) acquire(token string, ref *models.ReferralRecord) (sess *session, opened bool, err error) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if !ok {
		sess = &session{}
		s.sessions[token] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	if sess.state != nil {
		return sess, false, nil
	}

	rec, err := s.store.GetConsultationByToken(token)
	switch {
	case errors.Is(err, models.ErrConsultationNotFound):
		if err := s.openConsultation(sess, token, ref.PatientName, ref.ContextNote); err != nil {
			sess.mu.Unlock()
			s.evict(token)
			return nil, false, err
		}
		return sess, true, nil
	case err != nil:
		sess.mu.Unlock()
		s.evict(token)
		return nil, false, err
	default:
		if rec.Completed || rec.TerminateReason != "" {
			sess.mu.Unlock()
			s.evict(token)
			return nil, false, models.ErrConsultationTerminated
		}
		sess.consultationID = rec.ID
		sess.state = reconstructState(rec)
		sess.startedAt = rec.StartedAt
		slog.Debug("SessionStore.acquire: state reconstructed from store", "consultationID", rec.ID)
		return sess, false, nil
	}
}

// openConsultation creates the consultation record with its greeting and
// fills in the session. The session lock must be held.
func (s *SessionStore) openConsultation(sess *session, token, patientName, contextNote string) error {
	state := &models.ConsultationState{
		PatientName: patientName,
		ContextNote: contextNote,
	}
	state.Append(models.RoleAgent, s.engine.OpeningMessage(patientName))

	now := time.Now().UTC()
	rec := &models.ConsultationRecord{
		ID:          uuid.NewString(),
		Token:       token,
		PatientName: patientName,
		ContextNote: contextNote,
		StartedAt:   now,
	}
	if err := s.store.CreateConsultation(rec); err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	if err := s.store.AppendMessage(rec.ID, state.Messages[0]); err != nil {
		slog.Error("SessionStore.openConsultation: failed to persist greeting", "error", err)
	}

	sess.consultationID = rec.ID
	sess.state = state
	sess.startedAt = now
	return nil
}

func (s *SessionStore) evict(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// persistTurn writes the turn's messages and updated fields through to the
// store. Persistence failures are logged rather than surfaced so a storage
// blip does not lose the reply the patient already earned.
func (s *SessionStore) persistTurn(token string, sess *session, result *TurnResult) {
	for _, msg := range result.NewMessages {
		if err := s.store.AppendMessage(sess.consultationID, msg); err != nil {
			slog.Error("SessionStore.persistTurn: failed to persist message", "consultationID", sess.consultationID, "seq", msg.Seq, "error", err)
		}
	}

	state := sess.state
	rec := &models.ConsultationRecord{
		ID:                sess.consultationID,
		QuestionsAnswered: state.QuestionsAnswered,
		SummaryConfirmed:  state.SummaryConfirmed,
		DoctorSummary:     state.DoctorSummary,
		PatientSummary:    state.PatientSummary,
		UrgencyLevel:      state.UrgencyLevel,
		TerminateReason:   state.TerminateReason,
	}
	if result.Terminated {
		now := time.Now().UTC()
		rec.Completed = true
		rec.CompletedAt = &now
	}
	if err := s.store.UpdateConsultation(rec); err != nil {
		slog.Error("SessionStore.persistTurn: failed to update consultation", "consultationID", sess.consultationID, "error", err)
	}

	if result.Terminated {
		if err := s.store.ConsumeToken(token); err != nil {
			slog.Error("SessionStore.persistTurn: failed to consume token", "error", err)
		}
		s.evict(token)
		slog.Info("SessionStore.persistTurn: consultation closed", "consultationID", sess.consultationID, "reason", state.TerminateReason)
	}
}

// reconstructState rebuilds engine state from a stored record. The off-topic
// streak and pending question are per-process and start over.
func reconstructState(rec *models.ConsultationRecord) *models.ConsultationState {
	return &models.ConsultationState{
		Messages:          append([]models.Message(nil), rec.Messages...),
		PatientName:       rec.PatientName,
		ContextNote:       rec.ContextNote,
		QuestionsAnswered: rec.QuestionsAnswered,
		SummaryConfirmed:  rec.SummaryConfirmed,
		TerminateReason:   rec.TerminateReason,
		DoctorSummary:     rec.DoctorSummary,
		PatientSummary:    rec.PatientSummary,
		UrgencyLevel:      rec.UrgencyLevel,
	}
}

func contextNoteFromReferral(info *models.ReferralInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", models.ContextNotePrefix, info.PatientName)
	if info.DoctorName != "" {
		fmt.Fprintf(&b, "Referring Doctor: %s\n", info.DoctorName)
	}
	if info.ReferralDate != "" {
		fmt.Fprintf(&b, "Referral Date: %s\n", info.ReferralDate)
	}
	if info.ReferredTo != "" {
		fmt.Fprintf(&b, "Referred To: %s\n", info.ReferredTo)
	}
	if info.ReferralReason != "" {
		fmt.Fprintf(&b, "Referral Reason: %s\n", info.ReferralReason)
	}
	return strings.TrimSpace(b.String())
}
