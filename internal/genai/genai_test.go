package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// mockChatService implements chatService for testing without network calls.
type mockChatService struct {
	content    string
	err        error
	noChoices  bool
	lastParams openai.ChatCompletionNewParams
	calls      int
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.calls++
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	if m.noChoices {
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: m.content}},
		},
	}, nil
}

func newTestClient(mock *mockChatService) *Client {
	return &Client{chat: mock, model: openai.ChatModelGPT4o, timeout: time.Second}
}

func TestClassifyTopicParsesDecision(t *testing.T) {
	mock := &mockChatService{content: `{"is_on_topic": true, "confidence": "high"}`}
	c := newTestClient(mock)

	decision, err := c.ClassifyTopic(context.Background(), TopicInput{
		UserMessage:  "I sleep about 5 hours",
		LastQuestion: "How many hours do you sleep?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.IsOnTopic {
		t.Error("expected on-topic decision")
	}
	if decision.Confidence != models.ConfidenceHigh {
		t.Errorf("expected high confidence, got %q", decision.Confidence)
	}
	if mock.lastParams.ResponseFormat.OfJSONSchema == nil {
		t.Error("expected a JSON schema response format")
	}
}

func TestClassifyTopicMalformedPayload(t *testing.T) {
	mock := &mockChatService{content: `not json at all`}
	c := newTestClient(mock)

	_, err := c.ClassifyTopic(context.Background(), TopicInput{UserMessage: "hi"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestAssessRiskRejectsUnknownLevel(t *testing.T) {
	mock := &mockChatService{content: `{"risk_detected": true, "risk_level": "catastrophic", "confidence": "high"}`}
	c := newTestClient(mock)

	_, err := c.AssessRisk(context.Background(), "patient: I feel fine")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for unknown risk level, got %v", err)
	}
}

func TestAssessRiskParsesDecision(t *testing.T) {
	mock := &mockChatService{content: `{"risk_detected": true, "risk_level": "immediate", "confidence": "high"}`}
	c := newTestClient(mock)

	decision, err := c.AssessRisk(context.Background(), "patient: I want to end it all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.RiskDetected || decision.RiskLevel != models.RiskImmediate {
		t.Errorf("unexpected decision: %+v", decision)
	}
	if !decision.RiskLevel.RequiresTermination() {
		t.Error("immediate risk must require termination")
	}
}

func TestRouteDecisionRejectsUnknownRoute(t *testing.T) {
	mock := &mockChatService{content: `{"decision": "keep_chatting"}`}
	c := newTestClient(mock)

	_, err := c.RouteDecision(context.Background(), "history", "")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for unknown route, got %v", err)
	}
}

func TestSummarizeValidatesFields(t *testing.T) {
	mock := &mockChatService{content: `{"doctor_summary": "", "patient_summary": "ok", "urgency_level": "routine"}`}
	c := newTestClient(mock)

	if _, err := c.Summarize(context.Background(), "history", "", false); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse for empty doctor summary, got %v", err)
	}

	mock.content = `{"doctor_summary": "clinical", "patient_summary": "plain", "urgency_level": "moderate"}`
	result, err := c.Summarize(context.Background(), "history", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UrgencyLevel != models.UrgencyModerate {
		t.Errorf("expected moderate urgency, got %q", result.UrgencyLevel)
	}
}

func TestNextQuestionNoChoices(t *testing.T) {
	mock := &mockChatService{noChoices: true}
	c := newTestClient(mock)

	if _, err := c.NextQuestion(context.Background(), "history", "", true); err == nil {
		t.Error("expected error when no choices returned")
	}
}

func TestNextQuestionGatewayError(t *testing.T) {
	mock := &mockChatService{err: errors.New("connection refused")}
	c := newTestClient(mock)

	if _, err := c.NextQuestion(context.Background(), "history", "", false); err == nil {
		t.Error("expected error to propagate from chat backend")
	}
}

func TestExtractReferralRequiresPatientName(t *testing.T) {
	mock := &mockChatService{content: `{"patient_name": "", "doctor_name": "Dr. A", "referral_date": "", "referred_to": "", "referral_reason": ""}`}
	c := newTestClient(mock)

	if _, err := c.ExtractReferral(context.Background(), "letter"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse without patient name, got %v", err)
	}

	mock.content = `{"patient_name": "Jane Doe", "doctor_name": "Dr. A", "referral_date": "12 March 2024", "referred_to": "Sleep Clinic", "referral_reason": "chronic insomnia"}`
	info, err := c.ExtractReferral(context.Background(), "letter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.PatientName != "Jane Doe" || info.ReferredTo != "Sleep Clinic" {
		t.Errorf("unexpected referral info: %+v", info)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when OPENAI_API_KEY is not set")
	}
	if _, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o-mini"), WithTimeout(5*time.Second)); err != nil {
		t.Errorf("unexpected error with explicit key: %v", err)
	}
}
