// Package referral turns free-text referral letters into structured intake
// records.
package referral

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SomnoHealth/ConsultFlow/internal/genai"
	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// Gateway is the slice of the reasoning client the extractor needs.
type Gateway interface {
	ExtractReferral(ctx context.Context, letterText string) (*models.ReferralInfo, error)
}

var _ Gateway = (genai.ClientInterface)(nil)

// Extractor parses referral letters through the reasoning gateway.
type Extractor struct {
	gateway Gateway
}

// NewExtractor creates an extractor backed by the given gateway.
func NewExtractor(gateway Gateway) *Extractor {
	return &Extractor{gateway: gateway}
}

// Process extracts the structured fields from a referral letter. It returns
// models.ErrEmptyReferralText when the letter is blank.
func (e *Extractor) Process(ctx context.Context, letterText string) (*models.ReferralInfo, error) {
	letterText = strings.TrimSpace(letterText)
	if letterText == "" {
		return nil, models.ErrEmptyReferralText
	}

	info, err := e.gateway.ExtractReferral(ctx, letterText)
	if err != nil {
		slog.Error("Extractor.Process: extraction failed", "error", err)
		return nil, fmt.Errorf("failed to extract referral fields: %w", err)
	}
	slog.Info("Extractor.Process: referral letter parsed", "patientName", info.PatientName)
	return info, nil
}
