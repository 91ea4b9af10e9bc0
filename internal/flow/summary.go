package flow

import (
	"context"
	"log/slog"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// SummaryGenerator runs the two-phase close of a consultation: a confirmation
// round that invites one correction, then a finalization that ends it.
type SummaryGenerator struct {
	gateway genai.ClientInterface
	window  *ContextWindow
}

// NewSummaryGenerator creates a generator backed by the given gateway.
func NewSummaryGenerator(gateway genai.ClientInterface, window *ContextWindow) *SummaryGenerator {
	if window == nil {
		window = NewContextWindow(DefaultWindowSize)
	}
	return &SummaryGenerator{gateway: gateway, window: window}
}

// Confirm produces the first-phase summaries and asks the patient whether
// anything should be added. The consultation keeps going for one more turn.
// If structured summarization fails, a plain-text summary is shown instead
// and the stored summaries stay unset until finalization.
func (s *SummaryGenerator) Confirm(ctx context.Context, state *models.ConsultationState) {
	transcript := s.window.Full(state.Messages)
	result, err := s.gateway.Summarize(ctx, transcript, state.ContextNote, false)
	if err != nil {
		slog.Warn("SummaryGenerator.Confirm: structured summary failed, falling back to plain text", "error", err)
		plain, perr := s.gateway.SummarizePlain(ctx, transcript)
		if perr != nil {
			slog.Error("SummaryGenerator.Confirm: plain summary failed", "error", perr)
			plain = "We discussed your sleep concerns in detail."
		}
		state.Append(models.RoleAgent, confirmationFallbackMessage(plain))
		state.SummaryConfirmed = true
		return
	}

	state.DoctorSummary = result.DoctorSummary
	state.PatientSummary = result.PatientSummary
	state.UrgencyLevel = result.UrgencyLevel
	state.Append(models.RoleAgent, confirmationMessage(result.PatientSummary))
	state.SummaryConfirmed = true
}

// Finalize regenerates both summaries with the correction turn included and
// terminates the consultation. Termination happens even when regeneration
// fails so a token can never stay live past this point.
func (s *SummaryGenerator) Finalize(ctx context.Context, state *models.ConsultationState) {
	result, err := s.gateway.Summarize(ctx, s.window.Full(state.Messages), state.ContextNote, true)
	if err != nil {
		slog.Error("SummaryGenerator.Finalize: final summary failed, closing anyway", "error", err)
		state.Append(models.RoleAgent, closingFailureMessage)
	} else {
		state.DoctorSummary = result.DoctorSummary
		state.PatientSummary = result.PatientSummary
		state.UrgencyLevel = result.UrgencyLevel
		state.Append(models.RoleAgent, closingMessage(result.PatientSummary))
	}
	state.TerminateReason = models.TerminateCompleted
}
