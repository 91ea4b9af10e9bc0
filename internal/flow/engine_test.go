package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

func TestAdvanceRejectsTerminatedConsultation(t *testing.T) {
	engine := NewConsultationEngine(newMockGateway())
	state := newTestState()
	state.TerminateReason = models.TerminateCompleted

	_, err := engine.Advance(context.Background(), state, "hello again")
	if !errors.Is(err, models.ErrConsultationTerminated) {
		t.Errorf("expected ErrConsultationTerminated, got %v", err)
	}
}

func TestAdvanceRejectsEmptyMessage(t *testing.T) {
	engine := NewConsultationEngine(newMockGateway())
	state := newTestState()

	_, err := engine.Advance(context.Background(), state, "   ")
	if !errors.Is(err, models.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if len(state.Messages) != 1 {
		t.Errorf("expected no messages appended, got %d", len(state.Messages))
	}
}

func TestEarlyTurnsAskWithoutConsultingRouter(t *testing.T) {
	mock := newMockGateway()
	engine := NewConsultationEngine(mock)
	state := newTestState()

	for i := 0; i < 4; i++ {
		result, err := engine.Advance(context.Background(), state, "I wake up at 3am every night")
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
		if result.Terminated {
			t.Fatalf("turn %d unexpectedly terminated", i+1)
		}
	}
	if mock.routeCalls != 0 {
		t.Errorf("expected no routing calls before the question floor, got %d", mock.routeCalls)
	}

	// The fifth answered question reaches the floor on the same turn.
	if _, err := engine.Advance(context.Background(), state, "and I can't fall back asleep"); err != nil {
		t.Fatalf("fifth turn failed: %v", err)
	}
	if mock.routeCalls != 1 {
		t.Errorf("expected the router consulted on the fifth answered turn, got %d calls", mock.routeCalls)
	}
	if mock.questionCalls != 5 {
		t.Errorf("expected 5 question calls, got %d", mock.questionCalls)
	}
	if state.QuestionsAnswered != 5 {
		t.Errorf("expected QuestionsAnswered=5, got %d", state.QuestionsAnswered)
	}
	if state.LastQuestion == "" {
		t.Error("expected LastQuestion to be recorded")
	}
}

func TestRouterConsultedAfterQuestionFloor(t *testing.T) {
	mock := newMockGateway()
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.QuestionsAnswered = 5

	if _, err := engine.Advance(context.Background(), state, "that's everything I can think of"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if mock.routeCalls != 1 {
		t.Errorf("expected 1 routing call, got %d", mock.routeCalls)
	}
}

func TestRoutingFailureAsksAnotherQuestion(t *testing.T) {
	mock := newMockGateway()
	mock.routeErr = errors.New("gateway unavailable")
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.QuestionsAnswered = 5

	result, err := engine.Advance(context.Background(), state, "I also snore loudly")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Error("routing failure must not terminate the consultation")
	}
	if mock.questionCalls != 1 {
		t.Errorf("expected a question after routing failure, got %d question calls", mock.questionCalls)
	}
	if mock.summaryCalls != 0 {
		t.Errorf("expected no summary call, got %d", mock.summaryCalls)
	}
}

func TestQuestionGenerationFailureUsesFallback(t *testing.T) {
	mock := newMockGateway()
	mock.questionErr = errors.New("gateway unavailable")
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "I can't fall asleep")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.AgentText != fallbackQuestion {
		t.Errorf("expected fallback question, got %q", result.AgentText)
	}
	if state.LastQuestion != fallbackQuestion {
		t.Errorf("expected LastQuestion to record the fallback, got %q", state.LastQuestion)
	}
}

func TestOffTopicWarningRedirectsToLastQuestion(t *testing.T) {
	mock := newMockGateway()
	mock.topicDecision = &models.TopicDecision{IsOnTopic: false, Confidence: models.ConfidenceHigh}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "what do you think about football?")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Error("a first off-topic turn must not terminate")
	}
	if !strings.Contains(result.AgentText, state.LastQuestion) {
		t.Errorf("warning should repeat the pending question, got %q", result.AgentText)
	}
	if state.OffTopicStreak != 1 {
		t.Errorf("expected streak 1, got %d", state.OffTopicStreak)
	}
	if state.QuestionsAnswered != 0 {
		t.Errorf("a warned turn must not count as an answered question, got %d", state.QuestionsAnswered)
	}
	if mock.riskCalls != 1 {
		t.Errorf("the risk check must still run on a warned turn, got %d calls", mock.riskCalls)
	}
	if mock.questionCalls != 0 {
		t.Error("off-topic turns must not generate a new question")
	}
}

func TestRiskDetectedOnWarnedTurnTerminates(t *testing.T) {
	mock := newMockGateway()
	mock.topicDecision = &models.TopicDecision{IsOnTopic: false, Confidence: models.ConfidenceHigh}
	mock.riskDecision = &models.RiskDecision{RiskDetected: true, RiskLevel: models.RiskImmediate, Confidence: models.ConfidenceHigh}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "I want to end it all")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !result.Terminated {
		t.Fatal("expected termination when a warned turn carries a risk signal")
	}
	if state.TerminateReason != models.TerminateSelfHarmRisk {
		t.Errorf("expected self_harm_risk, got %q", state.TerminateReason)
	}
	if state.UrgencyLevel != models.UrgencyHigh {
		t.Errorf("expected high urgency, got %q", state.UrgencyLevel)
	}
	if !strings.Contains(result.AgentText, "emergency services (911/112)") {
		t.Errorf("expected emergency services wording, got %q", result.AgentText)
	}
}

func TestOffTopicLimitTerminates(t *testing.T) {
	mock := newMockGateway()
	mock.topicDecision = &models.TopicDecision{IsOnTopic: false, Confidence: models.ConfidenceHigh}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	var result *TurnResult
	var err error
	for i := 0; i < 3; i++ {
		result, err = engine.Advance(context.Background(), state, "let's talk about politics")
		if err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}

	if !result.Terminated {
		t.Fatal("expected termination after three consecutive off-topic turns")
	}
	if state.TerminateReason != models.TerminateOffTopicLimit {
		t.Errorf("expected off_topic_limit, got %q", state.TerminateReason)
	}
	if state.UrgencyLevel != models.UrgencyHigh {
		t.Errorf("expected high urgency, got %q", state.UrgencyLevel)
	}
	if result.AgentText != offTopicTermination {
		t.Errorf("unexpected termination message %q", result.AgentText)
	}
}

func TestOnTopicTurnResetsStreak(t *testing.T) {
	mock := newMockGateway()
	mock.topicDecision = &models.TopicDecision{IsOnTopic: false, Confidence: models.ConfidenceHigh}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	for i := 0; i < 2; i++ {
		if _, err := engine.Advance(context.Background(), state, "anyway, about the weather"); err != nil {
			t.Fatalf("turn %d failed: %v", i+1, err)
		}
	}
	mock.topicDecision = &models.TopicDecision{IsOnTopic: true, Confidence: models.ConfidenceHigh}
	if _, err := engine.Advance(context.Background(), state, "sorry, my sleep has been terrible"); err != nil {
		t.Fatalf("on-topic turn failed: %v", err)
	}
	if state.OffTopicStreak != 0 {
		t.Errorf("expected streak reset to 0, got %d", state.OffTopicStreak)
	}
	if state.Terminated() {
		t.Error("consultation must survive a broken streak")
	}
}

func TestTopicCheckFailureFailsOpen(t *testing.T) {
	mock := newMockGateway()
	mock.topicErr = errors.New("gateway unavailable")
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.OffTopicStreak = 2

	result, err := engine.Advance(context.Background(), state, "I keep waking up tired")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Error("topic check failure must not terminate")
	}
	if state.OffTopicStreak != 0 {
		t.Errorf("fail-open turn should reset the streak, got %d", state.OffTopicStreak)
	}
	if mock.riskCalls != 1 {
		t.Errorf("expected the risk check to run, got %d calls", mock.riskCalls)
	}
	if mock.questionCalls != 1 {
		t.Errorf("expected a question, got %d calls", mock.questionCalls)
	}
}

func TestElevatedRiskTerminatesWithCrisisMessage(t *testing.T) {
	for _, level := range []models.RiskLevel{models.RiskMedium, models.RiskHigh} {
		mock := newMockGateway()
		mock.riskDecision = &models.RiskDecision{RiskDetected: true, RiskLevel: level, Confidence: models.ConfidenceHigh}
		engine := NewConsultationEngine(mock)
		state := newTestState()

		result, err := engine.Advance(context.Background(), state, "I can't see the point of anything anymore")
		if err != nil {
			t.Fatalf("level %s: Advance failed: %v", level, err)
		}
		if !result.Terminated {
			t.Fatalf("level %s: expected termination", level)
		}
		if state.TerminateReason != models.TerminateSelfHarmRisk {
			t.Errorf("level %s: expected self_harm_risk, got %q", level, state.TerminateReason)
		}
		if state.UrgencyLevel != models.UrgencyHigh {
			t.Errorf("level %s: expected high urgency, got %q", level, state.UrgencyLevel)
		}
		if !strings.Contains(result.AgentText, "crisis hotline") {
			t.Errorf("level %s: expected crisis hotline wording, got %q", level, result.AgentText)
		}
		if mock.questionCalls != 0 {
			t.Errorf("level %s: no question may follow a risk termination", level)
		}
	}
}

func TestImmediateRiskDirectsToEmergencyServices(t *testing.T) {
	mock := newMockGateway()
	mock.riskDecision = &models.RiskDecision{RiskDetected: true, RiskLevel: models.RiskImmediate, Confidence: models.ConfidenceHigh}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "I'm going to hurt myself tonight")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !result.Terminated {
		t.Fatal("expected termination")
	}
	if !strings.Contains(result.AgentText, "emergency services (911/112)") {
		t.Errorf("expected emergency services wording, got %q", result.AgentText)
	}
}

func TestLowRiskContinues(t *testing.T) {
	mock := newMockGateway()
	mock.riskDecision = &models.RiskDecision{RiskDetected: true, RiskLevel: models.RiskLow, Confidence: models.ConfidenceMedium}
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "sometimes I feel a bit down")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Error("low risk must not terminate")
	}
	if mock.questionCalls != 1 {
		t.Errorf("expected the turn to continue to a question, got %d calls", mock.questionCalls)
	}
}

func TestRiskCheckFailureContinues(t *testing.T) {
	mock := newMockGateway()
	mock.riskErr = errors.New("gateway unavailable")
	engine := NewConsultationEngine(mock)
	state := newTestState()

	result, err := engine.Advance(context.Background(), state, "my sleep is awful")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Error("risk check failure must not terminate")
	}
	if mock.questionCalls != 1 {
		t.Errorf("expected the turn to continue, got %d question calls", mock.questionCalls)
	}
}

func TestSummaryConfirmationKeepsConsultationLive(t *testing.T) {
	mock := newMockGateway()
	mock.routeDecision = &models.RouteDecision{Decision: models.RouteGenerateSummary}
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.QuestionsAnswered = 6

	result, err := engine.Advance(context.Background(), state, "no, that covers everything")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Terminated {
		t.Fatal("confirmation phase must not terminate")
	}
	if !state.SummaryConfirmed {
		t.Error("expected SummaryConfirmed to be set")
	}
	if state.DoctorSummary == "" || state.PatientSummary == "" {
		t.Error("expected both summaries to be stored")
	}
	if state.UrgencyLevel != models.UrgencyModerate {
		t.Errorf("expected moderate urgency, got %q", state.UrgencyLevel)
	}
	if !strings.Contains(result.AgentText, state.PatientSummary) {
		t.Errorf("confirmation message should include the patient summary, got %q", result.AgentText)
	}
	if mock.lastIsFinal {
		t.Error("confirmation phase must not request the final summary")
	}
}

func TestSummaryFallbackLeavesStoredSummariesUnset(t *testing.T) {
	mock := newMockGateway()
	mock.routeDecision = &models.RouteDecision{Decision: models.RouteGenerateSummary}
	mock.summaryErr = errors.New("malformed payload")
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.QuestionsAnswered = 6

	result, err := engine.Advance(context.Background(), state, "nothing more to add")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !state.SummaryConfirmed {
		t.Error("expected SummaryConfirmed despite the fallback")
	}
	if state.DoctorSummary != "" || state.UrgencyLevel != "" {
		t.Error("fallback confirmation must leave stored summaries unset")
	}
	if !strings.Contains(result.AgentText, mock.plainSummary) {
		t.Errorf("expected plain summary in reply, got %q", result.AgentText)
	}
	if mock.plainCalls != 1 {
		t.Errorf("expected one plain summary call, got %d", mock.plainCalls)
	}
}

func TestCorrectionTurnFinalizes(t *testing.T) {
	mock := newMockGateway()
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.QuestionsAnswered = 6
	state.SummaryConfirmed = true
	state.DoctorSummary = "Initial doctor summary."
	state.PatientSummary = "Initial patient summary."
	state.UrgencyLevel = models.UrgencyRoutine
	mock.summary = &models.SummaryResult{
		DoctorSummary:  "Updated doctor summary.",
		PatientSummary: "Updated patient summary.",
		UrgencyLevel:   models.UrgencyHigh,
	}

	result, err := engine.Advance(context.Background(), state, "I also take melatonin nightly")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !result.Terminated {
		t.Fatal("expected the correction turn to terminate")
	}
	if state.TerminateReason != models.TerminateCompleted {
		t.Errorf("expected completed, got %q", state.TerminateReason)
	}
	if !mock.lastIsFinal {
		t.Error("finalization must request the final summary")
	}
	if state.DoctorSummary != "Updated doctor summary." {
		t.Errorf("expected the final summary to overwrite, got %q", state.DoctorSummary)
	}
	if state.UrgencyLevel != models.UrgencyHigh {
		t.Errorf("expected overwritten urgency, got %q", state.UrgencyLevel)
	}
	if !strings.Contains(result.AgentText, "Updated patient summary.") {
		t.Errorf("closing message should include the final patient summary, got %q", result.AgentText)
	}
	if mock.routeCalls != 0 {
		t.Error("a confirmed summary must bypass routing")
	}
}

func TestFinalizationFailureStillCompletes(t *testing.T) {
	mock := newMockGateway()
	mock.summaryErr = errors.New("gateway unavailable")
	engine := NewConsultationEngine(mock)
	state := newTestState()
	state.SummaryConfirmed = true
	state.DoctorSummary = "Initial doctor summary."

	result, err := engine.Advance(context.Background(), state, "nothing else")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !result.Terminated {
		t.Fatal("finalization failure must still terminate")
	}
	if state.TerminateReason != models.TerminateCompleted {
		t.Errorf("expected completed, got %q", state.TerminateReason)
	}
	if state.DoctorSummary != "Initial doctor summary." {
		t.Errorf("failed finalization must keep the confirmation summary, got %q", state.DoctorSummary)
	}
	if result.AgentText != closingFailureMessage {
		t.Errorf("unexpected closing message %q", result.AgentText)
	}
}

func TestSafetyGateSeesLatestMessageAndContext(t *testing.T) {
	mock := newMockGateway()
	engine := NewConsultationEngine(mock)
	state := newTestState()

	if _, err := engine.Advance(context.Background(), state, "I grind my teeth at night"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if mock.lastTopicInput.UserMessage != "I grind my teeth at night" {
		t.Errorf("unexpected user message %q", mock.lastTopicInput.UserMessage)
	}
	if mock.lastTopicInput.LastQuestion != "What's been troubling you with your sleep?" {
		t.Errorf("expected the pending question to be forwarded, got %q", mock.lastTopicInput.LastQuestion)
	}
	if !strings.Contains(mock.lastTopicInput.RecentContext, "patient: I grind my teeth at night") {
		t.Errorf("recent context should include the new message, got %q", mock.lastTopicInput.RecentContext)
	}
}

func TestFirstQuestionFlagged(t *testing.T) {
	mock := newMockGateway()
	engine := NewConsultationEngine(mock)
	state := newTestState()

	if _, err := engine.Advance(context.Background(), state, "I sleep maybe four hours"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if !mock.lastIsFirst {
		t.Error("expected the first generated question to be flagged as first")
	}

	if _, err := engine.Advance(context.Background(), state, "it started last spring"); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if mock.lastIsFirst {
		t.Error("expected later questions not to be flagged as first")
	}
}
