package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// ErrCandidateNotFound is returned when no shortlisted candidate exists
// for the requested ID.
var ErrCandidateNotFound = errors.New("candidate not found")

// CandidateStorage handles storage of shortlisted candidate records
type CandidateStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCandidateStorage creates a new SQLite candidate storage
func NewCandidateStorage(db *sql.DB, logger *logger.Logger) *CandidateStorage {
	storage := &CandidateStorage{
		db:     db,
		logger: logger.Named("sqlite-candidates"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize candidate storage", Error(err))
	}

	return storage
}

func (s *CandidateStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS shortlisted_resume (
			candidate_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			resume_text TEXT NOT NULL,
			ats_score REAL NOT NULL DEFAULT 0,
			shortlisted INTEGER NOT NULL DEFAULT 0,
			batch_id INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create shortlisted_resume table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_shortlisted_batch ON shortlisted_resume(batch_id)`)
	if err != nil {
		return fmt.Errorf("failed to create candidate index: %w", err)
	}

	return nil
}

// Insert stores a candidate record
func (s *CandidateStorage) Insert(record *CandidateRecord) error {
	shortlisted := 0
	if record.Shortlisted {
		shortlisted = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO shortlisted_resume
		(candidate_id, name, email, phone_number, resume_text, ats_score, shortlisted, batch_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CandidateID,
		record.Name,
		record.Email,
		record.Phone,
		record.ResumeText,
		record.ATSScore,
		shortlisted,
		record.BatchID,
		record.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}

	return nil
}

// GetByID returns the shortlisted candidate with the given ID, or
// ErrCandidateNotFound
func (s *CandidateStorage) GetByID(candidateID int64) (*CandidateRecord, error) {
	row := s.db.QueryRow(
		`SELECT candidate_id, name, email, phone_number, resume_text, ats_score, shortlisted, batch_id, created_at
		FROM shortlisted_resume
		WHERE candidate_id = ? AND shortlisted = 1`,
		candidateID,
	)

	record, err := scanCandidateRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate: %w", err)
	}

	return record, nil
}

// GetShortlisted returns shortlisted candidates from the most recent batch,
// ordered by ATS score
func (s *CandidateStorage) GetShortlisted(limit int) ([]*CandidateRecord, error) {
	rows, err := s.db.Query(
		`SELECT candidate_id, name, email, phone_number, resume_text, ats_score, shortlisted, batch_id, created_at
		FROM shortlisted_resume
		WHERE shortlisted = 1
		AND batch_id = (SELECT COALESCE(MAX(batch_id), 0) FROM shortlisted_resume)
		ORDER BY ats_score DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query shortlisted candidates: %w", err)
	}
	defer rows.Close()

	var records []*CandidateRecord
	for rows.Next() {
		record, err := scanCandidateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// NextCandidateID returns the next free candidate ID, starting at 100
func (s *CandidateStorage) NextCandidateID() (int64, error) {
	var maxID sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(candidate_id) FROM shortlisted_resume`).Scan(&maxID); err != nil {
		return 0, fmt.Errorf("failed to query max candidate id: %w", err)
	}
	if !maxID.Valid || maxID.Int64 < 100 {
		return 100, nil
	}
	return maxID.Int64 + 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidateRow(row rowScanner) (*CandidateRecord, error) {
	var record CandidateRecord
	var shortlisted int
	var createdAt string

	if err := row.Scan(
		&record.CandidateID,
		&record.Name,
		&record.Email,
		&record.Phone,
		&record.ResumeText,
		&record.ATSScore,
		&shortlisted,
		&record.BatchID,
		&createdAt,
	); err != nil {
		return nil, err
	}

	record.Shortlisted = shortlisted != 0

	var err error
	record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return &record, nil
}
