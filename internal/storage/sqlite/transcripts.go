package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/voxhire/voxhire/pkg/logger"
)

// TranscriptStorage handles the append-only store of transcribed answers.
// Appends arrive out of order from concurrent workers; the UNIQUE
// constraint on (candidate_id, question_index) makes the duplicate check
// and the write a single atomic operation inside SQLite.
type TranscriptStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTranscriptStorage creates a new SQLite transcript storage
func NewTranscriptStorage(db *sql.DB, logger *logger.Logger) *TranscriptStorage {
	storage := &TranscriptStorage{
		db:     db,
		logger: logger.Named("sqlite-transcripts"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize transcript storage", Error(err))
	}

	return storage
}

func (s *TranscriptStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL,
			question_index INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(candidate_id, question_index)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_transcripts_candidate ON transcripts(candidate_id)`)
	if err != nil {
		return fmt.Errorf("failed to create transcript index: %w", err)
	}

	return nil
}

// Append stores one transcribed answer. Writing an index that already
// exists for the candidate is a no-op; the first write wins. Returns
// true when the row was stored, false when it was a duplicate.
func (s *TranscriptStorage) Append(candidateID int64, questionIndex int, question, answer string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO transcripts
		(candidate_id, question_index, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		candidateID,
		questionIndex,
		question,
		answer,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to append transcript entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if rows == 0 {
		s.logger.Debug("Skipped duplicate transcript entry",
			Int64("candidate_id", candidateID),
			Int("question_index", questionIndex))
		return false, nil
	}

	return true, nil
}

// Count returns how many distinct question indices are stored for the
// candidate
func (s *TranscriptStorage) Count(candidateID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT question_index) FROM transcripts WHERE candidate_id = ?`,
		candidateID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transcript entries: %w", err)
	}
	return count, nil
}

// Ready reports whether at least expected distinct answers are stored
func (s *TranscriptStorage) Ready(candidateID int64, expected int) (bool, error) {
	count, err := s.Count(candidateID)
	if err != nil {
		return false, err
	}
	return count >= expected, nil
}

// Full returns the candidate's transcript entries ordered by question index
func (s *TranscriptStorage) Full(candidateID int64) ([]*TranscriptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, candidate_id, question_index, question, answer, created_at
		FROM transcripts
		WHERE candidate_id = ?
		ORDER BY question_index ASC`,
		candidateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var records []*TranscriptRecord
	for rows.Next() {
		var record TranscriptRecord
		var createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.CandidateID,
			&record.QuestionIndex,
			&record.Question,
			&record.Answer,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}

		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// FullText renders the candidate's transcript as numbered question/answer
// blocks, the format the evaluator feeds to the scoring backend
func (s *TranscriptStorage) FullText(candidateID int64) (string, error) {
	records, err := s.Full(candidateID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, record := range records {
		fmt.Fprintf(&b, "Question%d: %s\n", record.QuestionIndex+1, record.Question)
		fmt.Fprintf(&b, "Answer%d: %s\n\n", record.QuestionIndex+1, record.Answer)
	}
	return b.String(), nil
}
