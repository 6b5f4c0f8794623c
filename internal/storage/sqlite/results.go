package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// Sentinel errors for result persistence.
var (
	// ErrDuplicateResult is returned when a result already exists for the
	// candidate. The primary key on candidate_id makes the insert-or-reject
	// atomic, closing the window the read-then-write duplicate check leaves
	// open.
	ErrDuplicateResult = errors.New("result already exists for candidate")
	// ErrResultNotFound is returned when no result row exists.
	ErrResultNotFound = errors.New("result not found")
)

// ResultStorage handles the append-only interview results table
type ResultStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewResultStorage creates a new SQLite result storage
func NewResultStorage(db *sql.DB, logger *logger.Logger) *ResultStorage {
	storage := &ResultStorage{
		db:     db,
		logger: logger.Named("sqlite-results"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize result storage", Error(err))
	}

	return storage
}

func (s *ResultStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interview_results (
			candidate_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			full_transcript TEXT NOT NULL,
			question_scores TEXT NOT NULL DEFAULT '[]',
			final_score REAL NOT NULL,
			summarised_feedback TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create interview_results table: %w", err)
	}

	return nil
}

// Insert stores a final evaluation result. There is no update path; a
// second insert for the same candidate returns ErrDuplicateResult.
func (s *ResultStorage) Insert(record *ResultRecord) error {
	scores, err := json.Marshal(record.QuestionScores)
	if err != nil {
		return fmt.Errorf("failed to marshal question scores: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO interview_results
		(candidate_id, name, email, phone_number, full_transcript, question_scores, final_score, summarised_feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CandidateID,
		record.Name,
		record.Email,
		record.Phone,
		record.FullTranscript,
		string(scores),
		record.FinalScore,
		record.Summary,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateResult
		}
		return fmt.Errorf("failed to insert result: %w", err)
	}

	return nil
}

// HasResult reports whether a result row exists for the candidate
func (s *ResultStorage) HasResult(candidateID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM interview_results WHERE candidate_id = ? LIMIT 1`,
		candidateID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for existing result: %w", err)
	}
	return true, nil
}

// Get returns the evaluation result for the candidate
func (s *ResultStorage) Get(candidateID int64) (*ResultRecord, error) {
	row := s.db.QueryRow(
		`SELECT candidate_id, name, email, phone_number, full_transcript, question_scores, final_score, summarised_feedback, created_at
		FROM interview_results
		WHERE candidate_id = ?`,
		candidateID,
	)

	var record ResultRecord
	var scores, createdAt string

	err := row.Scan(
		&record.CandidateID,
		&record.Name,
		&record.Email,
		&record.Phone,
		&record.FullTranscript,
		&scores,
		&record.FinalScore,
		&record.Summary,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query result: %w", err)
	}

	if err := json.Unmarshal([]byte(scores), &record.QuestionScores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question scores: %w", err)
	}

	record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &record, nil
}

// Reset drops and recreates the results table, for operator tooling
func (s *ResultStorage) Reset() error {
	if _, err := s.db.Exec(`DROP TABLE IF EXISTS interview_results`); err != nil {
		return fmt.Errorf("failed to drop interview_results table: %w", err)
	}
	return s.initDB()
}

// isUniqueViolation detects a primary key / unique constraint failure
// without depending on driver-specific error codes
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique") || strings.Contains(text, "constraint")
}
