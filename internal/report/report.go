// Package report renders clinician-facing consultation reports as PDF.
package report

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/signintech/gopdf"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// defaultFontPaths lists common DejaVuSans locations across distributions.
var defaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// Generator renders consultation reports. The font path list is configurable
// for tests.
type Generator struct {
	fontPaths []string
}

// NewGenerator creates a generator using the default font locations.
func NewGenerator() *Generator {
	return &Generator{fontPaths: defaultFontPaths}
}

// Generate renders a clinician report for a finished or in-progress
// consultation. The referral record may be nil when the token was issued
// without a letter.
func (g *Generator) Generate(rec *models.ConsultationRecord, ref *models.ReferralRecord) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range g.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		slog.Error("Generator.Generate: failed to load report font", "error", fontErr)
		return nil, fmt.Errorf("failed to load report font: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Sleep Consultation Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	name := rec.PatientName
	if name == "" {
		name = "Unknown"
	}
	pdf.Cell(nil, fmt.Sprintf("Patient: %s", name))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Consultation ID: %s", rec.ID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Started: %s", rec.StartedAt.Format("2006-01-02 15:04")))
	pdf.Br(15)
	if rec.CompletedAt != nil {
		pdf.Cell(nil, fmt.Sprintf("Completed: %s", rec.CompletedAt.Format("2006-01-02 15:04")))
		pdf.Br(15)
	}
	urgency := string(rec.UrgencyLevel)
	if urgency == "" {
		urgency = "not recorded"
	}
	pdf.Cell(nil, fmt.Sprintf("Urgency: %s", urgency))
	pdf.Br(15)
	if rec.TerminateReason != "" {
		pdf.Cell(nil, fmt.Sprintf("Outcome: %s", rec.TerminateReason))
		pdf.Br(15)
	}
	pdf.Br(10)

	if ref != nil && ref.DoctorName != "" {
		if err := g.section(&pdf, "Referral"); err != nil {
			return nil, err
		}
		g.paragraph(&pdf, fmt.Sprintf("Referred by %s", ref.DoctorName))
		if ref.ReferralReason != "" {
			g.paragraph(&pdf, fmt.Sprintf("Reason: %s", ref.ReferralReason))
		}
		pdf.Br(10)
	}

	if err := g.section(&pdf, "Medical Summary"); err != nil {
		return nil, err
	}
	summary := rec.DoctorSummary
	if summary == "" {
		summary = "No medical summary was recorded for this consultation."
	}
	g.paragraph(&pdf, summary)
	pdf.Br(10)

	if err := g.section(&pdf, "Transcript"); err != nil {
		return nil, err
	}
	if len(rec.Messages) == 0 {
		g.paragraph(&pdf, "No messages recorded.")
	}
	for _, msg := range rec.Messages {
		g.paragraph(&pdf, fmt.Sprintf("[%s] %s", msg.Role, msg.Content))
		pdf.Br(5)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	slog.Debug("Generator.Generate: report rendered", "consultationID", rec.ID, "bytes", buf.Len())
	return buf.Bytes(), nil
}

func (g *Generator) section(pdf *gopdf.GoPdf, title string) error {
	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return err
	}
	pdf.Cell(nil, title)
	pdf.Br(15)
	return pdf.SetFont("DejaVu", "", 11)
}

func (g *Generator) paragraph(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, 500)
	for _, l := range lines {
		if pdf.GetY() > 800 {
			pdf.AddPage()
		}
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}
