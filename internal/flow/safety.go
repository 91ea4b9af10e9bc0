package flow

import (
	"context"
	"log/slog"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// offTopicLimit is the consecutive off-topic streak that ends a consultation.
const offTopicLimit = 3

// SafetyGate screens every patient turn before it reaches questioning or
// summarization. The topic check fails open so a flaky classifier cannot
// strand a cooperative patient; the risk check failing simply lets the
// turn continue.
type SafetyGate struct {
	gateway genai.ClientInterface
	window  *ContextWindow
}

// NewSafetyGate creates a gate backed by the given reasoning gateway.
func NewSafetyGate(gateway genai.ClientInterface, window *ContextWindow) *SafetyGate {
	if window == nil {
		window = NewContextWindow(DefaultWindowSize)
	}
	return &SafetyGate{gateway: gateway, window: window}
}

// GateResult reports what the safety gate did with a turn. When Terminated
// or Warned is set the turn is finished and no routing should happen.
type GateResult struct {
	Terminated bool
	Warned     bool
}

// Screen runs the topic check and then the risk check against the latest
// patient message, appending any agent replies directly to state. An
// on-topic turn counts as an answered question.
func (g *SafetyGate) Screen(ctx context.Context, state *models.ConsultationState) (*GateResult, error) {
	msg := state.LastPatientMessage()
	if msg == "" {
		return nil, models.ErrEmptyMessage
	}

	onTopic := true
	decision, err := g.gateway.ClassifyTopic(ctx, genai.TopicInput{
		UserMessage:   msg,
		RecentContext: g.window.Recent(state.Messages),
		LastQuestion:  state.LastQuestion,
	})
	if err != nil {
		slog.Warn("SafetyGate.Screen: topic check failed, assuming on-topic", "error", err)
	} else {
		onTopic = decision.IsOnTopic
	}

	warned := false
	if !onTopic {
		state.OffTopicStreak++
		if state.OffTopicStreak >= offTopicLimit {
			state.Append(models.RoleAgent, offTopicTermination)
			state.TerminateReason = models.TerminateOffTopicLimit
			state.UrgencyLevel = models.UrgencyHigh
			slog.Info("SafetyGate.Screen: off-topic limit reached, terminating", "streak", state.OffTopicStreak)
			return &GateResult{Terminated: true}, nil
		}
		state.Append(models.RoleAgent, offTopicWarning(state.LastQuestion))
		slog.Debug("SafetyGate.Screen: off-topic warning issued", "streak", state.OffTopicStreak)
		warned = true
	} else {
		state.OffTopicStreak = 0
		state.QuestionsAnswered++
	}

	// The risk check still runs on a warned turn. A patient statement the
	// topic classifier judged off-topic can carry a risk signal.
	risk, err := g.gateway.AssessRisk(ctx, g.window.RecentContents(state.Messages))
	if err != nil {
		slog.Warn("SafetyGate.Screen: risk check failed, continuing", "error", err)
		return &GateResult{Warned: warned}, nil
	}
	if risk.RiskDetected && risk.RiskLevel.RequiresTermination() {
		if risk.RiskLevel == models.RiskImmediate {
			state.Append(models.RoleAgent, immediateRiskMessage)
		} else {
			state.Append(models.RoleAgent, elevatedRiskMessage)
		}
		state.TerminateReason = models.TerminateSelfHarmRisk
		state.UrgencyLevel = models.UrgencyHigh
		slog.Info("SafetyGate.Screen: risk detected, terminating", "level", risk.RiskLevel)
		return &GateResult{Terminated: true}, nil
	}

	return &GateResult{Warned: warned}, nil
}
