package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/blobstore"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/evaluation"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

type echoTranscriber struct{}

func (echoTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	return "spoken: " + string(data), nil
}

type pipelineScorer struct{}

func (pipelineScorer) ScoreTranscript(ctx context.Context, fullTranscript string) (string, error) {
	return `{"results": [{"question": 1, "score": 8, "reason": "ok"}], "average_score": 8.0, "summary": "Good interview."}`, nil
}

// TestFullInterviewPipeline walks one candidate through the whole flow:
// start, ten audio answers through the worker pool, the completion gate,
// evaluation, and session teardown.
func TestFullInterviewPipeline(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Nop()
	candidates := sqlite.NewCandidateStorage(db, log)
	sessions := sqlite.NewSessionStorage(db, log)
	results := sqlite.NewResultStorage(db, log)
	transcripts := sqlite.NewTranscriptStorage(db, log)

	blobs, err := blobstore.New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	executor := retry.NewExecutor(5, time.Millisecond, log)
	pool := transcription.NewPool(context.Background(), 3, 100, echoTranscriber{}, executor, transcripts, blobs, log)
	if err := pool.Start(); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	t.Cleanup(func() { pool.Stop() })

	gate := transcription.NewGate(transcripts, 10*time.Millisecond, 200, log)
	evaluator := evaluation.NewEvaluator(candidates, transcripts, results, pipelineScorer{}, executor, log)

	cfg := config.InterviewConfig{QuestionCount: 10, DomainTopic: "Machine Learning concepts"}
	service := NewService(candidates, sessions, results, transcripts, &fakeGenerator{}, nil, blobs, pool, cfg, log)

	if err := candidates.Insert(&sqlite.CandidateRecord{
		CandidateID: 101,
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "+1-555-0101",
		ResumeText:  "Machine learning engineer.",
		ATSScore:    82.5,
		Shortlisted: true,
		BatchID:     1,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to insert candidate: %v", err)
	}

	ctx := context.Background()
	if _, err := service.Start(ctx, 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		question, err := service.CurrentQuestion(ctx, 101)
		if err != nil {
			t.Fatalf("question %d failed: %v", i, err)
		}
		if question.Index != i {
			t.Fatalf("expected question index %d, got %d", i, question.Index)
		}

		step, err := service.SubmitAnswer(ctx, 101, AnswerPayload{
			Audio:    strings.NewReader(fmt.Sprintf("answer %d", i+1)),
			AudioExt: ".webm",
		})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if step.Done != (i == 9) {
			t.Fatalf("submit %d reported done=%v", i, step.Done)
		}
	}

	if _, err := service.CurrentQuestion(ctx, 101); !errors.Is(err, ErrNoMoreQuestions) {
		t.Fatalf("expected exhausted question loop, got %v", err)
	}

	ready, err := gate.AwaitReady(ctx, 101, 10)
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if !ready {
		t.Fatal("all ten transcripts should land within the poll bound")
	}

	record, err := evaluator.Evaluate(ctx, 101)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if record.FinalScore != 8.0 {
		t.Fatalf("unexpected final score: %v", record.FinalScore)
	}
	if !strings.Contains(record.FullTranscript, "spoken: answer 1") {
		t.Fatalf("result transcript missing transcribed answers:\n%s", record.FullTranscript)
	}

	if err := service.Complete(101); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := service.Get(101); !errors.Is(err, sqlite.ErrSessionNotFound) {
		t.Fatalf("session must be discarded after completion, got %v", err)
	}

	// A second attempt is rejected on the durable result.
	if _, err := service.Start(ctx, 101); !errors.Is(err, ErrAlreadyInterviewed) {
		t.Fatalf("expected ErrAlreadyInterviewed after completion, got %v", err)
	}
}
