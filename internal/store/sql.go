// Shared SQL helpers for the SQLite and PostgreSQL backends.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// buildSearchFilter renders the WHERE clause for a consultation search.
// style is "?" for SQLite or "$" for PostgreSQL positional placeholders.
func buildSearchFilter(q models.SearchQuery, style string) (string, []any) {
	var conds []string
	var args []any
	placeholder := func() string {
		if style == "$" {
			return fmt.Sprintf("$%d", len(args))
		}
		return "?"
	}

	if q.PatientName != "" {
		args = append(args, "%"+q.PatientName+"%")
		conds = append(conds, "patient_name LIKE "+placeholder())
	}
	if q.StartDate != nil {
		args = append(args, *q.StartDate)
		conds = append(conds, "started_at >= "+placeholder())
	}
	if q.EndDate != nil {
		args = append(args, *q.EndDate)
		conds = append(conds, "started_at <= "+placeholder())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// buildSearchOrder renders the ORDER BY clause, restricted to known columns.
func buildSearchOrder(q models.SearchQuery) string {
	column := "started_at"
	switch q.SortBy {
	case "patient_name", "completed_at", "urgency_level", "started_at":
		column = q.SortBy
	}
	direction := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// scanConsultations reads search result rows, without transcripts.
func scanConsultations(rows *sql.Rows) ([]*models.ConsultationRecord, error) {
	var out []*models.ConsultationRecord
	for rows.Next() {
		var rec models.ConsultationRecord
		if err := rows.Scan(&rec.ID, &rec.Token, &rec.PatientName, &rec.ContextNote, &rec.QuestionsAnswered, &rec.SummaryConfirmed, &rec.DoctorSummary, &rec.PatientSummary, &rec.UrgencyLevel, &rec.TerminateReason, &rec.Completed, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan consultation row: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consultation rows: %w", err)
	}
	return out, nil
}

// queryStatistics aggregates consultation counts.
func queryStatistics(db *sql.DB) (*models.Statistics, error) {
	stats := &models.Statistics{UrgencyBreakdown: make(map[models.UrgencyLevel]int)}

	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) FROM consultations`).
		Scan(&stats.TotalConsultations, &stats.CompletedConsultations)
	if err != nil {
		return nil, fmt.Errorf("failed to query consultation counts: %w", err)
	}
	stats.PendingConsultations = stats.TotalConsultations - stats.CompletedConsultations

	rows, err := db.Query(`SELECT urgency_level, COUNT(*) FROM consultations WHERE urgency_level <> '' GROUP BY urgency_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to query urgency breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level models.UrgencyLevel
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan urgency row: %w", err)
		}
		stats.UrgencyBreakdown[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate urgency rows: %w", err)
	}
	return stats, nil
}
