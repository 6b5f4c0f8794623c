package sqlite

import "time"

// Session states
const (
	StateAwaitingAnswer = "awaiting_answer"
	StateFinalizing     = "finalizing"
	StateComplete       = "complete"
)

// CandidateRecord represents a shortlisted candidate row
type CandidateRecord struct {
	CandidateID int64
	Name        string
	Email       string
	Phone       string
	ResumeText  string
	ATSScore    float64
	Shortlisted bool
	BatchID     int64
	CreatedAt   time.Time
}

// QAEntry is one question/answer pair in a session transcript
type QAEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SessionRecord represents a persisted interview session.
// The session is the single source of truth for question order and the
// current index; it is mutated only through the interview service.
type SessionRecord struct {
	CandidateID  int64
	Name         string
	Email        string
	Phone        string
	ResumeText   string
	Questions    []string
	CurrentIndex int
	Transcript   []QAEntry
	State        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TranscriptRecord represents one transcribed answer
type TranscriptRecord struct {
	ID            int64
	CandidateID   int64
	QuestionIndex int
	Question      string
	Answer        string
	CreatedAt     time.Time
}

// QuestionScore is one per-question evaluation entry
type QuestionScore struct {
	Question int    `json:"question"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
}

// ResultRecord represents a final interview evaluation row.
// At most one row exists per candidate; candidate_id is the primary key.
type ResultRecord struct {
	CandidateID    int64
	Name           string
	Email          string
	Phone          string
	FullTranscript string
	QuestionScores []QuestionScore
	FinalScore     float64
	Summary        string
	CreatedAt      time.Time
}
