package flow

import (
	"context"
	"fmt"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// mockGateway implements genai.ClientInterface with scripted decisions and
// call counters.
type mockGateway struct {
	topicDecision *models.TopicDecision
	topicErr      error
	riskDecision  *models.RiskDecision
	riskErr       error
	question      string
	questionErr   error
	routeDecision *models.RouteDecision
	routeErr      error
	summary       *models.SummaryResult
	summaryErr    error
	plainSummary  string
	plainErr      error
	referral      *models.ReferralInfo
	referralErr   error

	topicCalls    int
	riskCalls     int
	questionCalls int
	routeCalls    int
	summaryCalls  int
	plainCalls    int

	lastTopicInput genai.TopicInput
	lastIsFirst    bool
	lastIsFinal    bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		topicDecision: &models.TopicDecision{IsOnTopic: true, Confidence: models.ConfidenceHigh},
		riskDecision:  &models.RiskDecision{RiskDetected: false, RiskLevel: models.RiskNone, Confidence: models.ConfidenceHigh},
		question:      "How many hours do you usually sleep?",
		routeDecision: &models.RouteDecision{Decision: models.RouteAskQuestion},
		summary: &models.SummaryResult{
			DoctorSummary:  "Patient reports chronic insomnia.",
			PatientSummary: "You described difficulty falling asleep most nights.",
			UrgencyLevel:   models.UrgencyModerate,
		},
		plainSummary: "You have trouble sleeping.",
	}
}

func (m *mockGateway) ClassifyTopic(_ context.Context, input genai.TopicInput) (*models.TopicDecision, error) {
	m.topicCalls++
	m.lastTopicInput = input
	if m.topicErr != nil {
		return nil, m.topicErr
	}
	return m.topicDecision, nil
}

func (m *mockGateway) AssessRisk(_ context.Context, _ string) (*models.RiskDecision, error) {
	m.riskCalls++
	if m.riskErr != nil {
		return nil, m.riskErr
	}
	return m.riskDecision, nil
}

func (m *mockGateway) NextQuestion(_ context.Context, _ string, _ string, isFirst bool) (string, error) {
	m.questionCalls++
	m.lastIsFirst = isFirst
	if m.questionErr != nil {
		return "", m.questionErr
	}
	return fmt.Sprintf("%s (#%d)", m.question, m.questionCalls), nil
}

func (m *mockGateway) RouteDecision(_ context.Context, _ string, _ string) (*models.RouteDecision, error) {
	m.routeCalls++
	if m.routeErr != nil {
		return nil, m.routeErr
	}
	return m.routeDecision, nil
}

func (m *mockGateway) Summarize(_ context.Context, _ string, _ string, isFinal bool) (*models.SummaryResult, error) {
	m.summaryCalls++
	m.lastIsFinal = isFinal
	if m.summaryErr != nil {
		return nil, m.summaryErr
	}
	return m.summary, nil
}

func (m *mockGateway) SummarizePlain(_ context.Context, _ string) (string, error) {
	m.plainCalls++
	if m.plainErr != nil {
		return "", m.plainErr
	}
	return m.plainSummary, nil
}

func (m *mockGateway) ExtractReferral(_ context.Context, _ string) (*models.ReferralInfo, error) {
	if m.referralErr != nil {
		return nil, m.referralErr
	}
	if m.referral != nil {
		return m.referral, nil
	}
	return &models.ReferralInfo{PatientName: "Jane Doe"}, nil
}

// newTestState returns a state mid-consultation with a pending question.
func newTestState() *models.ConsultationState {
	state := &models.ConsultationState{PatientName: "Jane", ContextNote: "Patient Name: Jane"}
	state.Append(models.RoleAgent, "Hello Jane! What's been troubling you with your sleep?")
	state.LastQuestion = "What's been troubling you with your sleep?"
	return state
}
