package flow

import (
	"context"
	"log/slog"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// questionFloor is the number of answered questions required before the
// router is ever consulted about moving to summarization.
const questionFloor = 5

// QuestionDirector decides whether a turn produces another question or moves
// to summarization, and generates the questions themselves.
type QuestionDirector struct {
	gateway genai.ClientInterface
	window  *ContextWindow
}

// NewQuestionDirector creates a director backed by the given gateway.
func NewQuestionDirector(gateway genai.ClientInterface, window *ContextWindow) *QuestionDirector {
	if window == nil {
		window = NewContextWindow(DefaultWindowSize)
	}
	return &QuestionDirector{gateway: gateway, window: window}
}

// Route picks the next move for an on-topic turn. Below the question floor it
// always asks without consulting the gateway; above it, a gateway failure
// also falls back to asking another question.
func (d *QuestionDirector) Route(ctx context.Context, state *models.ConsultationState) models.RouteChoice {
	if state.QuestionsAnswered < questionFloor {
		return models.RouteAskQuestion
	}
	decision, err := d.gateway.RouteDecision(ctx, d.window.Full(state.Messages), state.ContextNote)
	if err != nil {
		slog.Warn("QuestionDirector.Route: routing failed, asking another question", "error", err)
		return models.RouteAskQuestion
	}
	return decision.Decision
}

// AskQuestion generates the next question, appends it as an agent message,
// and records it as the pending question. A gateway failure substitutes a
// generic question rather than stalling the consultation.
func (d *QuestionDirector) AskQuestion(ctx context.Context, state *models.ConsultationState, isFirst bool) {
	question, err := d.gateway.NextQuestion(ctx, d.window.Full(state.Messages), state.ContextNote, isFirst)
	if err != nil {
		slog.Warn("QuestionDirector.AskQuestion: question generation failed, using fallback", "error", err)
		question = fallbackQuestion
	}
	state.Append(models.RoleAgent, question)
	state.LastQuestion = question
}
