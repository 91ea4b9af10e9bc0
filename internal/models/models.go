// Package models defines the core data structures for ConsultFlow.
//
// It includes the consultation state machine types, persistent record
// projections, and the typed decision contracts returned by the reasoning
// gateway, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	// RolePatient marks a message written by the patient.
	RolePatient MessageRole = "patient"
	// RoleAgent marks a message written by the consultation agent.
	RoleAgent MessageRole = "agent"
)

// TerminateReason records why a consultation ended. An empty value means the
// consultation is still open.
type TerminateReason string

const (
	TerminateOffTopicLimit TerminateReason = "off_topic_limit"
	TerminateSelfHarmRisk  TerminateReason = "self_harm_risk"
	TerminateCompleted     TerminateReason = "completed"
)

// UrgencyLevel is the clinical priority attached to a completed or
// safety-terminated consultation.
type UrgencyLevel string

const (
	UrgencyRoutine  UrgencyLevel = "routine"
	UrgencyModerate UrgencyLevel = "moderate"
	UrgencyHigh     UrgencyLevel = "high"
)

// IsValidUrgencyLevel checks if the given urgency level is supported.
func IsValidUrgencyLevel(u UrgencyLevel) bool {
	switch u {
	case UrgencyRoutine, UrgencyModerate, UrgencyHigh:
		return true
	default:
		return false
	}
}

// RiskLevel is the self-harm risk severity returned by the risk check.
type RiskLevel string

const (
	RiskNone      RiskLevel = "none"
	RiskLow       RiskLevel = "low"
	RiskMedium    RiskLevel = "medium"
	RiskHigh      RiskLevel = "high"
	RiskImmediate RiskLevel = "immediate"
)

// IsValidRiskLevel checks if the given risk level is supported.
func IsValidRiskLevel(r RiskLevel) bool {
	switch r {
	case RiskNone, RiskLow, RiskMedium, RiskHigh, RiskImmediate:
		return true
	default:
		return false
	}
}

// RequiresTermination reports whether a detected risk at this level must end
// the consultation immediately.
func (r RiskLevel) RequiresTermination() bool {
	switch r {
	case RiskMedium, RiskHigh, RiskImmediate:
		return true
	default:
		return false
	}
}

// Confidence is the gateway's self-reported confidence in a classification.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RouteChoice is the director's decision for the next turn.
type RouteChoice string

const (
	RouteAskQuestion     RouteChoice = "ask_question"
	RouteGenerateSummary RouteChoice = "generate_summary"
)

// Error variables for better error handling and testability.
var (
	ErrInvalidToken           = errors.New("unknown access token")
	ErrTokenConsumed          = errors.New("access token already consumed")
	ErrConsultationTerminated = errors.New("consultation already terminated")
	ErrConsultationNotFound   = errors.New("consultation not found")
	ErrReferralNotFound       = errors.New("referral not found")
	ErrEmptyMessage           = errors.New("message cannot be empty")
	ErrEmptyReferralText      = errors.New("referral letter text cannot be empty")
)

// Message is a single entry in the consultation transcript. Seq is assigned
// per consultation in append order; the (consultation, seq) pair makes
// retried appends idempotent.
type Message struct {
	Seq       int         `json:"seq"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ConsultationState is the live state of one consultation. It is owned by
// exactly one engine invocation at a time; the session store serializes
// access per token.
type ConsultationState struct {
	Messages          []Message
	PatientName       string
	ContextNote       string
	OffTopicStreak    int
	LastQuestion      string
	QuestionsAnswered int
	SummaryConfirmed  bool
	TerminateReason   TerminateReason
	DoctorSummary     string
	PatientSummary    string
	UrgencyLevel      UrgencyLevel
}

// Terminated reports whether the consultation has reached its absorbing
// terminal state.
func (s *ConsultationState) Terminated() bool {
	return s.TerminateReason != ""
}

// Append adds a message to the transcript with the next sequence number and
// returns it.
func (s *ConsultationState) Append(role MessageRole, content string) Message {
	msg := Message{
		Seq:       len(s.Messages) + 1,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// LastPatientMessage returns the most recent patient message, or "" if the
// patient has not spoken yet.
func (s *ConsultationState) LastPatientMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RolePatient {
			return s.Messages[i].Content
		}
	}
	return ""
}

// ConsultationRecord is the persistent projection of a consultation.
// It is created on the first turn, updated after every turn, and immutable
// once TerminateReason is set except for CompletedAt.
type ConsultationRecord struct {
	ID                string          `json:"id"`
	Token             string          `json:"-"`
	PatientName       string          `json:"patient_name,omitempty"`
	ContextNote       string          `json:"-"`
	Messages          []Message       `json:"messages,omitempty"`
	QuestionsAnswered int             `json:"questions_answered"`
	SummaryConfirmed  bool            `json:"summary_confirmed"`
	DoctorSummary     string          `json:"doctor_summary,omitempty"`
	PatientSummary    string          `json:"patient_summary,omitempty"`
	UrgencyLevel      UrgencyLevel    `json:"urgency_level,omitempty"`
	TerminateReason   TerminateReason `json:"terminate_reason,omitempty"`
	Completed         bool            `json:"completed"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// ReferralRecord holds one access token together with the referral-letter
// fields it was issued for. Tokens issued without a referral letter leave the
// letter fields empty.
type ReferralRecord struct {
	Token          string    `json:"-"`
	PatientName    string    `json:"patient_name,omitempty"`
	DoctorName     string    `json:"doctor_name,omitempty"`
	ReferralDate   string    `json:"referral_date,omitempty"`
	ReferredTo     string    `json:"referred_to,omitempty"`
	ReferralReason string    `json:"referral_reason,omitempty"`
	ContextNote    string    `json:"-"`
	Consumed       bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContextNotePrefix is the marker the context note uses to carry a patient
// name into a consultation.
const ContextNotePrefix = "Patient Name:"

// PatientNameFromContext extracts a patient name from a context note of the
// form "Patient Name: Jane Doe". Returns "" when no name is carried.
func PatientNameFromContext(note string) string {
	if !strings.HasPrefix(note, ContextNotePrefix) {
		return ""
	}
	name := strings.TrimPrefix(note, ContextNotePrefix)
	// Multi-line notes carry referral fields after the name line.
	name, _, _ = strings.Cut(name, "\n")
	return strings.TrimSpace(name)
}

// SearchQuery filters and orders consultation searches.
type SearchQuery struct {
	PatientName string
	StartDate   *time.Time
	EndDate     *time.Time
	SortBy      string // started_at, completed_at, patient_name, urgency_level
	SortOrder   string // asc or desc
}

// Statistics summarizes the consultation store.
type Statistics struct {
	TotalConsultations     int                  `json:"total_consultations"`
	CompletedConsultations int                  `json:"completed_consultations"`
	PendingConsultations   int                  `json:"pending_consultations"`
	UrgencyBreakdown       map[UrgencyLevel]int `json:"urgency_breakdown"`
}
