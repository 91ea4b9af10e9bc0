// Package models defines the API response envelope shared by HTTP handlers.
package models

// API response status constants.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)

// APIResponse is the uniform envelope for HTTP responses.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the response status.
func (b *APIResponseBuilder) WithStatus(status string) *APIResponseBuilder {
	b.response.Status = status
	return b
}

// WithMessage sets the response message.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the response result payload.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build returns the assembled APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and
// optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// StartResult is the payload returned when a new consultation is opened.
type StartResult struct {
	Token     string `json:"auth_token"`
	AgentText string `json:"bot_response"`
}

// ChatResult is the payload returned for one consultation turn.
type ChatResult struct {
	AgentText         string       `json:"bot_response"`
	Terminal          bool         `json:"conversation_complete"`
	DoctorSummary     string       `json:"doctor_summary,omitempty"`
	PatientSummary    string       `json:"patient_summary,omitempty"`
	UrgencyLevel      UrgencyLevel `json:"urgency_level,omitempty"`
	QuestionsAnswered int          `json:"questions_answered"`
}

// ReferralResult is the payload returned after referral-letter intake.
type ReferralResult struct {
	Token          string `json:"auth_token"`
	PatientName    string `json:"patient_name,omitempty"`
	DoctorName     string `json:"doctor_name,omitempty"`
	ReferralDate   string `json:"referral_date,omitempty"`
	ReferredTo     string `json:"referred_to,omitempty"`
	ReferralReason string `json:"referral_reason,omitempty"`
}

// HealthResult is the payload for the health endpoint.
type HealthResult struct {
	Status             string  `json:"status"`
	Service            string  `json:"service"`
	Version            string  `json:"version"`
	DatabaseStatus     string  `json:"database_status"`
	ActiveSessions     int     `json:"active_sessions"`
	TotalConsultations int     `json:"total_consultations"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}
