package transcription

import (
	"context"
	"io"
)

// Task is one unit of asynchronous transcription work: a single recorded
// answer for a single question. Created by the request that submits the
// answer, consumed exactly once by a pool worker, never requeued.
type Task struct {
	CandidateID   int64
	QuestionIndex int
	QuestionText  string
	AudioPath     string
}

// Transcriber converts recorded audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Appender is the idempotent transcript write the workers call on success
type Appender interface {
	Append(candidateID int64, questionIndex int, question, answer string) (bool, error)
}

// ReadinessChecker reports whether a candidate's transcript holds at
// least the expected number of distinct answers
type ReadinessChecker interface {
	Ready(candidateID int64, expected int) (bool, error)
}

// Submitter is the fire-and-forget submission surface the session layer
// hands answers to
type Submitter interface {
	Submit(task Task)
}
