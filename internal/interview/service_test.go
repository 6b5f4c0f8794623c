package interview

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/blobstore"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

type fakeGenerator struct {
	calls int
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, name, resumeText string, count int, domainTopic string) ([]string, error) {
	f.calls++
	questions := make([]string, count)
	for i := range questions {
		questions[i] = fmt.Sprintf("Question %d for %s", i+1, name)
	}
	return questions, nil
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

type fakeSubmitter struct {
	tasks    []transcription.Task
	onSubmit func(transcription.Task)
}

func (f *fakeSubmitter) Submit(task transcription.Task) {
	if f.onSubmit != nil {
		f.onSubmit(task)
	}
	f.tasks = append(f.tasks, task)
}

type testEnv struct {
	service     *Service
	sessions    *sqlite.SessionStorage
	transcripts *sqlite.TranscriptStorage
	results     *sqlite.ResultStorage
	generator   *fakeGenerator
	submitter   *fakeSubmitter
}

func newTestEnv(t *testing.T, questionCount int, speech SpeechSynthesizer) *testEnv {
	t.Helper()

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

	generator := &fakeGenerator{}
	submitter := &fakeSubmitter{}

	cfg := config.InterviewConfig{
		QuestionCount: questionCount,
		DomainTopic:   "Machine Learning concepts",
	}

	service := NewService(candidates, sessions, results, transcripts, generator, speech, blobs, submitter, cfg, log)

	if err := candidates.Insert(&sqlite.CandidateRecord{
		CandidateID: 101,
		Name:        "Ada Lovelace",
		Email:       "ada@example.com",
		Phone:       "+1-555-0101",
		ResumeText:  "Machine learning engineer with ten years of experience.",
		ATSScore:    82.5,
		Shortlisted: true,
		BatchID:     1,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to insert candidate: %v", err)
	}

	return &testEnv{
		service:     service,
		sessions:    sessions,
		transcripts: transcripts,
		results:     results,
		generator:   generator,
		submitter:   submitter,
	}
}

func TestStartUnknownCandidate(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	_, err := env.service.Start(context.Background(), 999)
	if !errors.Is(err, sqlite.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}

func TestStartRejectsSecondInterview(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if err := env.results.Insert(&sqlite.ResultRecord{
		CandidateID: 101,
		Name:        "Ada Lovelace",
		FinalScore:  7.5,
		Summary:     "Done.",
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to seed result: %v", err)
	}

	_, err := env.service.Start(context.Background(), 101)
	if !errors.Is(err, ErrAlreadyInterviewed) {
		t.Fatalf("expected ErrAlreadyInterviewed, got %v", err)
	}
}

func TestStartCreatesSession(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	session, err := env.service.Start(context.Background(), 101)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(session.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(session.Questions))
	}
	if session.CurrentIndex != 0 {
		t.Fatalf("new session must start at index 0, got %d", session.CurrentIndex)
	}
	if session.State != sqlite.StateAwaitingAnswer {
		t.Fatalf("unexpected state: %s", session.State)
	}
}

func TestStartResumesExistingSession(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	first, err := env.service.Start(context.Background(), 101)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{Text: "an answer"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	resumed, err := env.service.Start(context.Background(), 101)
	if err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if resumed.CurrentIndex != 1 {
		t.Fatalf("resumed session must keep its index, got %d", resumed.CurrentIndex)
	}
	if resumed.Questions[0] != first.Questions[0] {
		t.Fatal("resumed session must keep the frozen question list")
	}
	if env.generator.calls != 1 {
		t.Fatalf("questions must be generated once, got %d calls", env.generator.calls)
	}
}

func TestCurrentQuestionWithSpeech(t *testing.T) {
	env := newTestEnv(t, 3, &fakeSpeech{audio: []byte("mp3-bytes")})

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	question, err := env.service.CurrentQuestion(context.Background(), 101)
	if err != nil {
		t.Fatalf("current question failed: %v", err)
	}
	if question.Index != 0 || question.Total != 3 {
		t.Fatalf("unexpected question position: %d/%d", question.Index, question.Total)
	}
	if string(question.Audio) != "mp3-bytes" {
		t.Fatal("expected synthesized audio on the question")
	}
}

func TestCurrentQuestionSpeechFailureDegrades(t *testing.T) {
	env := newTestEnv(t, 3, &fakeSpeech{err: errors.New("tts unavailable")})

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	question, err := env.service.CurrentQuestion(context.Background(), 101)
	if err != nil {
		t.Fatalf("speech failure must not fail the question: %v", err)
	}
	if question.Audio != nil {
		t.Fatal("failed synthesis must leave audio empty")
	}
	if question.Text == "" {
		t.Fatal("question text must survive synthesis failure")
	}
}

func TestSubmitAudioAnswer(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// The session must be durably advanced, with the placeholder recorded,
	// before the task reaches the pool.
	env.submitter.onSubmit = func(task transcription.Task) {
		session, err := env.sessions.Get(101)
		if err != nil {
			t.Errorf("session not persisted before handoff: %v", err)
			return
		}
		if session.CurrentIndex != task.QuestionIndex+1 {
			t.Errorf("session index %d not advanced past task index %d", session.CurrentIndex, task.QuestionIndex)
		}
		last := session.Transcript[len(session.Transcript)-1]
		if last.Answer != ProcessingPlaceholder {
			t.Errorf("expected placeholder answer before handoff, got %q", last.Answer)
		}
	}

	step, err := env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{
		Audio:    strings.NewReader("webm-bytes"),
		AudioExt: ".webm",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if step.NextIndex != 1 || step.Done {
		t.Fatalf("unexpected next step: %+v", step)
	}
	if len(env.submitter.tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(env.submitter.tasks))
	}
	if env.submitter.tasks[0].QuestionIndex != 0 {
		t.Fatalf("task carries wrong index: %d", env.submitter.tasks[0].QuestionIndex)
	}
}

func TestSubmitTextAnswerStoredSynchronously(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{Text: "my answer"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if len(env.submitter.tasks) != 0 {
		t.Fatal("text answers must not enqueue transcription tasks")
	}

	records, err := env.transcripts.Full(101)
	if err != nil {
		t.Fatalf("full failed: %v", err)
	}
	if len(records) != 1 || records[0].Answer != "my answer" {
		t.Fatalf("text answer not stored synchronously: %+v", records)
	}
}

func TestSubmitEmptyTextAnswer(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, err := env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	records, err := env.transcripts.Full(101)
	if err != nil {
		t.Fatalf("full failed: %v", err)
	}
	if len(records) != 1 || records[0].Answer != "[no answer]" {
		t.Fatalf("empty answer must be recorded as [no answer]: %+v", records)
	}
}

func TestQuestionLoopExhaustion(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var step *NextStep
	var err error
	for i := 0; i < 3; i++ {
		step, err = env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{Text: fmt.Sprintf("answer %d", i+1)})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if step.NextIndex != i+1 {
			t.Fatalf("index must advance by exactly one: submit %d gave next index %d", i, step.NextIndex)
		}
	}
	if !step.Done {
		t.Fatal("last submission must report done")
	}

	if _, err := env.service.SubmitAnswer(context.Background(), 101, AnswerPayload{Text: "extra"}); !errors.Is(err, ErrNoMoreQuestions) {
		t.Fatalf("expected ErrNoMoreQuestions for extra submission, got %v", err)
	}

	if _, err := env.service.CurrentQuestion(context.Background(), 101); !errors.Is(err, ErrNoMoreQuestions) {
		t.Fatalf("expected ErrNoMoreQuestions for exhausted loop, got %v", err)
	}

	session, err := env.service.Get(101)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if session.State != sqlite.StateFinalizing {
		t.Fatalf("exhausted session must be finalizing, got %s", session.State)
	}
}

func TestComplete(t *testing.T) {
	env := newTestEnv(t, 3, nil)

	if _, err := env.service.Start(context.Background(), 101); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := env.service.Complete(101); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if _, err := env.service.Get(101); !errors.Is(err, sqlite.ErrSessionNotFound) {
		t.Fatalf("completed session must be discarded, got %v", err)
	}

	// Completing an already-discarded session is a no-op.
	if err := env.service.Complete(101); err != nil {
		t.Fatalf("repeat complete must not error: %v", err)
	}
}
