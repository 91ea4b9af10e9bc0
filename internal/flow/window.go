// Package flow implements the consultation state machine: safety gating,
// question direction, summarization, and the session/token lifecycle.
package flow

import (
	"strings"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// DefaultWindowSize is the number of trailing messages the safety checks see.
const DefaultWindowSize = 5

// ContextWindow renders transcript slices for reasoning calls. It exists so
// history capping or summarization can later change without touching the
// component contracts.
type ContextWindow struct {
	limit int
}

// NewContextWindow creates a window over the trailing limit messages.
func NewContextWindow(limit int) *ContextWindow {
	if limit <= 0 {
		limit = DefaultWindowSize
	}
	return &ContextWindow{limit: limit}
}

// Recent renders the trailing messages with role prefixes.
func (w *ContextWindow) Recent(msgs []models.Message) string {
	return renderTranscript(tail(msgs, w.limit), true)
}

// RecentContents renders the trailing messages without role prefixes,
// as the risk check consumes them.
func (w *ContextWindow) RecentContents(msgs []models.Message) string {
	return renderTranscript(tail(msgs, w.limit), false)
}

// Full renders the entire transcript with role prefixes.
func (w *ContextWindow) Full(msgs []models.Message) string {
	return renderTranscript(msgs, true)
}

func tail(msgs []models.Message, n int) []models.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func renderTranscript(msgs []models.Message, withRoles bool) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if withRoles {
			lines = append(lines, string(m.Role)+": "+m.Content)
		} else {
			lines = append(lines, m.Content)
		}
	}
	return strings.Join(lines, "\n")
}
