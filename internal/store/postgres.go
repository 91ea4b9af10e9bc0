// This file implements a PostgreSQL-backed store for referrals,
// consultations, and transcripts.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL with the given DSN and applies
// the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL store ready")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateReferral(rec *models.ReferralRecord) error {
	_, err := s.db.Exec(`INSERT INTO referrals (token, patient_name, doctor_name, referral_date, referred_to, referral_reason, context_note, consumed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Token, rec.PatientName, rec.DoctorName, rec.ReferralDate, rec.ReferredTo, rec.ReferralReason, rec.ContextNote, rec.Consumed, rec.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore CreateReferral failed", "error", err)
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetReferral(token string) (*models.ReferralRecord, error) {
	var rec models.ReferralRecord
	err := s.db.QueryRow(`SELECT token, patient_name, doctor_name, referral_date, referred_to, referral_reason, context_note, consumed, created_at
		FROM referrals WHERE token = $1`, token).
		Scan(&rec.Token, &rec.PatientName, &rec.DoctorName, &rec.ReferralDate, &rec.ReferredTo, &rec.ReferralReason, &rec.ContextNote, &rec.Consumed, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrInvalidToken
	}
	if err != nil {
		slog.Error("PostgresStore GetReferral failed", "error", err)
		return nil, fmt.Errorf("failed to query referral: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ConsumeToken(token string) error {
	res, err := s.db.Exec(`UPDATE referrals SET consumed = TRUE WHERE token = $1`, token)
	if err != nil {
		slog.Error("PostgresStore ConsumeToken failed", "error", err)
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrInvalidToken
	}
	return nil
}

func (s *PostgresStore) CreateConsultation(rec *models.ConsultationRecord) error {
	_, err := s.db.Exec(`INSERT INTO consultations (id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.Token, rec.PatientName, rec.ContextNote, rec.QuestionsAnswered, rec.SummaryConfirmed, rec.DoctorSummary, rec.PatientSummary, rec.UrgencyLevel, rec.TerminateReason, rec.Completed, rec.StartedAt, rec.CompletedAt)
	if err != nil {
		slog.Error("PostgresStore CreateConsultation failed", "error", err, "consultationID", rec.ID)
		return fmt.Errorf("failed to insert consultation %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetConsultationByToken(token string) (*models.ConsultationRecord, error) {
	return s.getConsultation(`WHERE token = $1`, token)
}

func (s *PostgresStore) GetConsultationByID(id string) (*models.ConsultationRecord, error) {
	return s.getConsultation(`WHERE id = $1`, id)
}

func (s *PostgresStore) getConsultation(where string, arg any) (*models.ConsultationRecord, error) {
	var rec models.ConsultationRecord
	err := s.db.QueryRow(`SELECT id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at
		FROM consultations `+where, arg).
		Scan(&rec.ID, &rec.Token, &rec.PatientName, &rec.ContextNote, &rec.QuestionsAnswered, &rec.SummaryConfirmed, &rec.DoctorSummary, &rec.PatientSummary, &rec.UrgencyLevel, &rec.TerminateReason, &rec.Completed, &rec.StartedAt, &rec.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrConsultationNotFound
	}
	if err != nil {
		slog.Error("PostgresStore getConsultation failed", "error", err)
		return nil, fmt.Errorf("failed to query consultation: %w", err)
	}

	rows, err := s.db.Query(`SELECT seq, role, content, created_at FROM messages WHERE consultation_id = $1 ORDER BY seq`, rec.ID)
	if err != nil {
		slog.Error("PostgresStore getConsultation messages query failed", "error", err)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		rec.Messages = append(rec.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return &rec, nil
}

// AppendMessage inserts a transcript message, ignoring a seq that already
// exists for the consultation.
func (s *PostgresStore) AppendMessage(consultationID string, msg models.Message) error {
	_, err := s.db.Exec(`INSERT INTO messages (consultation_id, seq, role, content, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (consultation_id, seq) DO NOTHING`,
		consultationID, msg.Seq, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AppendMessage failed", "error", err, "consultationID", consultationID, "seq", msg.Seq)
		return fmt.Errorf("failed to insert message %d for %s: %w", msg.Seq, consultationID, err)
	}
	return nil
}

func (s *PostgresStore) UpdateConsultation(rec *models.ConsultationRecord) error {
	res, err := s.db.Exec(`UPDATE consultations SET questions_answered = $1, summary_confirmed = $2, doctor_summary = $3, patient_summary = $4, urgency_level = $5, terminate_reason = $6, completed = $7, completed_at = $8 WHERE id = $9`,
		rec.QuestionsAnswered, rec.SummaryConfirmed, rec.DoctorSummary, rec.PatientSummary, rec.UrgencyLevel, rec.TerminateReason, rec.Completed, rec.CompletedAt, rec.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateConsultation failed", "error", err, "consultationID", rec.ID)
		return fmt.Errorf("failed to update consultation %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConsultationNotFound
	}
	return nil
}

func (s *PostgresStore) SearchConsultations(q models.SearchQuery) ([]*models.ConsultationRecord, error) {
	query := `SELECT id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at FROM consultations`
	where, args := buildSearchFilter(q, "$")
	query += where + buildSearchOrder(q)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore SearchConsultations query failed", "error", err)
		return nil, fmt.Errorf("failed to search consultations: %w", err)
	}
	defer rows.Close()

	return scanConsultations(rows)
}

func (s *PostgresStore) Statistics() (*models.Statistics, error) {
	return queryStatistics(s.db)
}

// Close closes the PostgreSQL connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
