package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voxhire/voxhire/internal/llm"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/pkg/logger"
)

// degradedSummary is the terminal feedback recorded when scoring or
// parsing fails. The pipeline always produces some result rather than
// leaving the candidate stuck.
const degradedSummary = "Evaluation error."

// Scorer sends a full transcript to the scoring backend and returns the
// raw model output
type Scorer interface {
	ScoreTranscript(ctx context.Context, fullTranscript string) (string, error)
}

// scorePayload is the fixed JSON shape the scoring backend must return
type scorePayload struct {
	Results      []sqlite.QuestionScore `json:"results"`
	AverageScore float64                `json:"average_score"`
	Summary      string                 `json:"summary"`
}

// Evaluator consumes a completed (possibly partial) transcript, scores
// it, and persists the final result exactly once per candidate
type Evaluator struct {
	candidates  *sqlite.CandidateStorage
	transcripts *sqlite.TranscriptStorage
	results     *sqlite.ResultStorage
	scorer      Scorer
	executor    *retry.Executor
	logger      *logger.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(
	candidates *sqlite.CandidateStorage,
	transcripts *sqlite.TranscriptStorage,
	results *sqlite.ResultStorage,
	scorer Scorer,
	executor *retry.Executor,
	log *logger.Logger,
) *Evaluator {
	return &Evaluator{
		candidates:  candidates,
		transcripts: transcripts,
		results:     results,
		scorer:      scorer,
		executor:    executor,
		logger:      log.Named("evaluator"),
	}
}

// Evaluate reads the candidate's transcript from the store, scores it via
// the backend, and persists the result. Backend and parse failures
// degrade to a zero-score result instead of propagating; duplicate
// persistence returns the already-stored result.
func (e *Evaluator) Evaluate(ctx context.Context, candidateID int64) (*sqlite.ResultRecord, error) {
	candidate, err := e.candidates.GetByID(candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	fullTranscript, err := e.transcripts.FullText(candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if fullTranscript == "" {
		fullTranscript = "Transcription incomplete."
	}

	record := &sqlite.ResultRecord{
		CandidateID:    candidateID,
		Name:           candidate.Name,
		Email:          candidate.Email,
		Phone:          candidate.Phone,
		FullTranscript: fullTranscript,
		QuestionScores: []sqlite.QuestionScore{},
		FinalScore:     0.0,
		Summary:        degradedSummary,
		CreatedAt:      time.Now().UTC(),
	}

	raw, err := retry.DoValue(ctx, e.executor, func() (string, error) {
		return e.scorer.ScoreTranscript(ctx, fullTranscript)
	})
	if err != nil {
		e.logger.Error("Scoring backend failed, recording degraded result",
			logger.Int64("candidate_id", candidateID),
			logger.Error(err))
	} else if payload, parseErr := parseScorePayload(raw); parseErr != nil {
		e.logger.Error("Failed to parse scoring output, recording degraded result",
			logger.Int64("candidate_id", candidateID),
			logger.Error(parseErr))
	} else {
		record.QuestionScores = payload.Results
		record.FinalScore = payload.AverageScore
		record.Summary = payload.Summary
	}

	if err := e.results.Insert(record); err != nil {
		if errors.Is(err, sqlite.ErrDuplicateResult) {
			e.logger.Warn("Result already persisted for candidate",
				logger.Int64("candidate_id", candidateID))
			return e.results.Get(candidateID)
		}
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	e.logger.Info("Evaluation result persisted",
		logger.Int64("candidate_id", candidateID),
		logger.Float64("final_score", record.FinalScore))

	return record, nil
}

// parseScorePayload parses the scoring backend's JSON output
func parseScorePayload(raw string) (*scorePayload, error) {
	cleaned := llm.StripCodeFences(raw)

	var payload scorePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("malformed scoring output: %w", err)
	}
	if payload.Summary == "" {
		return nil, fmt.Errorf("scoring output missing summary")
	}

	return &payload, nil
}
