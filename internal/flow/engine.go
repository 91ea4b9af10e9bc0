package flow

import (
	"context"
	"strings"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// ConsultationEngine advances a consultation one patient turn at a time.
// Every turn passes through the safety gate before any routing happens, and
// a terminated consultation never advances again.
type ConsultationEngine struct {
	gateway    genai.ClientInterface
	gate       *SafetyGate
	director   *QuestionDirector
	summarizer *SummaryGenerator
}

// NewConsultationEngine wires the gate, director, and summarizer around a
// shared gateway and context window.
func NewConsultationEngine(gateway genai.ClientInterface) *ConsultationEngine {
	window := NewContextWindow(DefaultWindowSize)
	return &ConsultationEngine{
		gateway:    gateway,
		gate:       NewSafetyGate(gateway, window),
		director:   NewQuestionDirector(gateway, window),
		summarizer: NewSummaryGenerator(gateway, window),
	}
}

// TurnResult is the outcome of one Advance call.
type TurnResult struct {
	// NewMessages are the messages appended during this turn, patient
	// message included, in order.
	NewMessages []models.Message
	// AgentText is the last agent reply of the turn.
	AgentText string
	// Terminated reports whether this turn ended the consultation.
	Terminated bool
}

// OpeningMessage returns the greeting that opens a consultation.
func (e *ConsultationEngine) OpeningMessage(patientName string) string {
	return personalizedGreeting(patientName)
}

// Advance processes one patient message. It returns
// models.ErrConsultationTerminated when the consultation has already ended
// and models.ErrEmptyMessage when the message is blank.
func (e *ConsultationEngine) Advance(ctx context.Context, state *models.ConsultationState, patientMessage string) (*TurnResult, error) {
	if state.Terminated() {
		return nil, models.ErrConsultationTerminated
	}
	patientMessage = strings.TrimSpace(patientMessage)
	if patientMessage == "" {
		return nil, models.ErrEmptyMessage
	}

	before := len(state.Messages)
	state.Append(models.RolePatient, patientMessage)

	gate, err := e.gate.Screen(ctx, state)
	if err != nil {
		return nil, err
	}
	if !gate.Terminated && !gate.Warned {
		switch {
		case state.SummaryConfirmed:
			e.summarizer.Finalize(ctx, state)
		case e.director.Route(ctx, state) == models.RouteGenerateSummary:
			e.summarizer.Confirm(ctx, state)
		default:
			// Only the greeting precedes the first question.
			e.director.AskQuestion(ctx, state, before <= 1)
		}
	}

	result := &TurnResult{
		NewMessages: state.Messages[before:],
		Terminated:  state.Terminated(),
	}
	for i := len(result.NewMessages) - 1; i >= 0; i-- {
		if result.NewMessages[i].Role == models.RoleAgent {
			result.AgentText = result.NewMessages[i].Content
			break
		}
	}
	return result, nil
}
