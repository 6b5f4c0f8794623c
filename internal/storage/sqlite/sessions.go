package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// ErrSessionNotFound is returned when no session exists for the candidate.
var ErrSessionNotFound = errors.New("session not found")

// SessionStorage persists interview sessions so that session state
// survives across independent request/response cycles
type SessionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSessionStorage creates a new SQLite session storage
func NewSessionStorage(db *sql.DB, logger *logger.Logger) *SessionStorage {
	storage := &SessionStorage{
		db:     db,
		logger: logger.Named("sqlite-sessions"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize session storage", Error(err))
	}

	return storage
}

func (s *SessionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			candidate_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			resume_text TEXT NOT NULL,
			questions TEXT NOT NULL,
			current_index INTEGER NOT NULL DEFAULT 0,
			transcript TEXT NOT NULL DEFAULT '[]',
			state TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	return nil
}

// Save inserts or replaces the session row for the candidate
func (s *SessionStorage) Save(record *SessionRecord) error {
	questions, err := json.Marshal(record.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	transcript, err := json.Marshal(record.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions
		(candidate_id, name, email, phone_number, resume_text, questions, current_index, transcript, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id) DO UPDATE SET
			current_index = excluded.current_index,
			transcript = excluded.transcript,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		record.CandidateID,
		record.Name,
		record.Email,
		record.Phone,
		record.ResumeText,
		string(questions),
		record.CurrentIndex,
		string(transcript),
		record.State,
		record.CreatedAt.Format(time.RFC3339),
		record.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get returns the session for the candidate, or ErrSessionNotFound
func (s *SessionStorage) Get(candidateID int64) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT candidate_id, name, email, phone_number, resume_text, questions, current_index, transcript, state, created_at, updated_at
		FROM sessions
		WHERE candidate_id = ?`,
		candidateID,
	)

	var record SessionRecord
	var questions, transcript, createdAt, updatedAt string

	err := row.Scan(
		&record.CandidateID,
		&record.Name,
		&record.Email,
		&record.Phone,
		&record.ResumeText,
		&questions,
		&record.CurrentIndex,
		&transcript,
		&record.State,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal([]byte(questions), &record.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if err := json.Unmarshal([]byte(transcript), &record.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &record, nil
}

// Delete removes the session row once the evaluation result is durable
func (s *SessionStorage) Delete(candidateID int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE candidate_id = ?`, candidateID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
