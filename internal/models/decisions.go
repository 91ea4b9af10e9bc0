// Package models defines the typed decision contracts returned by the
// reasoning gateway. Every gateway call is a typed request/response pair;
// malformed responses are converted into gateway errors at the boundary.
package models

// TopicDecision is the outcome of the topic-relevance check.
type TopicDecision struct {
	IsOnTopic  bool       `json:"is_on_topic"`
	Confidence Confidence `json:"confidence"`
}

// RiskDecision is the outcome of the self-harm risk check.
type RiskDecision struct {
	RiskDetected bool       `json:"risk_detected"`
	RiskLevel    RiskLevel  `json:"risk_level"`
	Confidence   Confidence `json:"confidence"`
}

// RouteDecision is the director's continue-or-summarize choice.
type RouteDecision struct {
	Decision RouteChoice `json:"decision"`
}

// SummaryResult is the structured two-audience summary produced by the
// summary generator.
type SummaryResult struct {
	DoctorSummary  string       `json:"doctor_summary"`
	PatientSummary string       `json:"patient_summary"`
	UrgencyLevel   UrgencyLevel `json:"urgency_level"`
}

// ReferralInfo holds the structured fields extracted from a referral letter.
type ReferralInfo struct {
	PatientName    string `json:"patient_name"`
	DoctorName     string `json:"doctor_name"`
	ReferralDate   string `json:"referral_date"`
	ReferredTo     string `json:"referred_to"`
	ReferralReason string `json:"referral_reason"`
}
