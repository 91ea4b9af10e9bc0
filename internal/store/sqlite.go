// This file implements an SQLite-backed store for referrals, consultations,
// and transcripts.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SomnoHealth/ConsultFlow/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) an SQLite database at the
// given path and applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "dsn", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateReferral(rec *models.ReferralRecord) error {
	_, err := s.db.Exec(`INSERT INTO referrals (token, patient_name, doctor_name, referral_date, referred_to, referral_reason, context_note, consumed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.PatientName, rec.DoctorName, rec.ReferralDate, rec.ReferredTo, rec.ReferralReason, rec.ContextNote, rec.Consumed, rec.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateReferral failed", "error", err)
		return fmt.Errorf("failed to insert referral: %w", err)
	}
	slog.Debug("SQLiteStore CreateReferral succeeded", "patientName", rec.PatientName)
	return nil
}

func (s *SQLiteStore) GetReferral(token string) (*models.ReferralRecord, error) {
	var rec models.ReferralRecord
	err := s.db.QueryRow(`SELECT token, patient_name, doctor_name, referral_date, referred_to, referral_reason, context_note, consumed, created_at
		FROM referrals WHERE token = ?`, token).
		Scan(&rec.Token, &rec.PatientName, &rec.DoctorName, &rec.ReferralDate, &rec.ReferredTo, &rec.ReferralReason, &rec.ContextNote, &rec.Consumed, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrInvalidToken
	}
	if err != nil {
		slog.Error("SQLiteStore GetReferral failed", "error", err)
		return nil, fmt.Errorf("failed to query referral: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) ConsumeToken(token string) error {
	res, err := s.db.Exec(`UPDATE referrals SET consumed = 1 WHERE token = ?`, token)
	if err != nil {
		slog.Error("SQLiteStore ConsumeToken failed", "error", err)
		return fmt.Errorf("failed to consume token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrInvalidToken
	}
	slog.Debug("SQLiteStore ConsumeToken succeeded")
	return nil
}

func (s *SQLiteStore) CreateConsultation(rec *models.ConsultationRecord) error {
	_, err := s.db.Exec(`INSERT INTO consultations (id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Token, rec.PatientName, rec.ContextNote, rec.QuestionsAnswered, rec.SummaryConfirmed, rec.DoctorSummary, rec.PatientSummary, rec.UrgencyLevel, rec.TerminateReason, rec.Completed, rec.StartedAt, rec.CompletedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateConsultation failed", "error", err, "consultationID", rec.ID)
		return fmt.Errorf("failed to insert consultation %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore CreateConsultation succeeded", "consultationID", rec.ID)
	return nil
}

func (s *SQLiteStore) GetConsultationByToken(token string) (*models.ConsultationRecord, error) {
	return s.getConsultation(`WHERE token = ?`, token)
}

func (s *SQLiteStore) GetConsultationByID(id string) (*models.ConsultationRecord, error) {
	return s.getConsultation(`WHERE id = ?`, id)
}

func (s *SQLiteStore) getConsultation(where string, arg any) (*models.ConsultationRecord, error) {
	var rec models.ConsultationRecord
	err := s.db.QueryRow(`SELECT id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at
		FROM consultations `+where, arg).
		Scan(&rec.ID, &rec.Token, &rec.PatientName, &rec.ContextNote, &rec.QuestionsAnswered, &rec.SummaryConfirmed, &rec.DoctorSummary, &rec.PatientSummary, &rec.UrgencyLevel, &rec.TerminateReason, &rec.Completed, &rec.StartedAt, &rec.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrConsultationNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore getConsultation failed", "error", err)
		return nil, fmt.Errorf("failed to query consultation: %w", err)
	}

	msgs, err := s.getMessages(rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Messages = msgs
	return &rec, nil
}

func (s *SQLiteStore) getMessages(consultationID string) ([]models.Message, error) {
	rows, err := s.db.Query(`SELECT seq, role, content, created_at FROM messages WHERE consultation_id = ? ORDER BY seq`, consultationID)
	if err != nil {
		slog.Error("SQLiteStore getMessages query failed", "error", err)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &m.Timestamp); err != nil {
			slog.Error("SQLiteStore getMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return msgs, nil
}

// AppendMessage inserts a transcript message, ignoring a seq that already
// exists for the consultation.
func (s *SQLiteStore) AppendMessage(consultationID string, msg models.Message) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO messages (consultation_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		consultationID, msg.Seq, msg.Role, msg.Content, msg.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AppendMessage failed", "error", err, "consultationID", consultationID, "seq", msg.Seq)
		return fmt.Errorf("failed to insert message %d for %s: %w", msg.Seq, consultationID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateConsultation(rec *models.ConsultationRecord) error {
	res, err := s.db.Exec(`UPDATE consultations SET questions_answered = ?, summary_confirmed = ?, doctor_summary = ?, patient_summary = ?, urgency_level = ?, terminate_reason = ?, completed = ?, completed_at = ? WHERE id = ?`,
		rec.QuestionsAnswered, rec.SummaryConfirmed, rec.DoctorSummary, rec.PatientSummary, rec.UrgencyLevel, rec.TerminateReason, rec.Completed, rec.CompletedAt, rec.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateConsultation failed", "error", err, "consultationID", rec.ID)
		return fmt.Errorf("failed to update consultation %s: %w", rec.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConsultationNotFound
	}
	slog.Debug("SQLiteStore UpdateConsultation succeeded", "consultationID", rec.ID)
	return nil
}

func (s *SQLiteStore) SearchConsultations(q models.SearchQuery) ([]*models.ConsultationRecord, error) {
	query := `SELECT id, token, patient_name, context_note, questions_answered, summary_confirmed, doctor_summary, patient_summary, urgency_level, terminate_reason, completed, started_at, completed_at FROM consultations`
	where, args := buildSearchFilter(q, "?")
	query += where + buildSearchOrder(q)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore SearchConsultations query failed", "error", err)
		return nil, fmt.Errorf("failed to search consultations: %w", err)
	}
	defer rows.Close()

	return scanConsultations(rows)
}

func (s *SQLiteStore) Statistics() (*models.Statistics, error) {
	return queryStatistics(s.db)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
