package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/voxhire/voxhire/internal/blobstore"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

// Sentinel errors surfaced to the request boundary.
var (
	// ErrAlreadyInterviewed rejects a second interview attempt for a
	// candidate with a durable evaluation result.
	ErrAlreadyInterviewed = errors.New("candidate has already completed the interview")
	// ErrNoMoreQuestions signals that the question loop is exhausted and
	// the session has moved to finalizing.
	ErrNoMoreQuestions = errors.New("no more questions")
)

// ProcessingPlaceholder is recorded at the current index before the
// transcription task is handed off, so a reload never replays a question.
const ProcessingPlaceholder = "[Processing...]"

// QuestionGenerator produces the interview questions for a candidate
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, name, resumeText string, count int, domainTopic string) ([]string, error)
}

// SpeechSynthesizer renders question text as audio for playback.
// Synthesis failure degrades to text-only display.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Question is one issued interview question with its optional
// synthesized-speech rendering
type Question struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
	Audio []byte `json:"audio,omitempty"`
}

// AnswerPayload carries either recorded audio or a literal text answer
type AnswerPayload struct {
	Audio    io.Reader
	AudioExt string
	Text     string
}

// NextStep tells the client where the session stands after a submission
type NextStep struct {
	NextIndex int  `json:"next_index"`
	Done      bool `json:"done"`
}

// Service is the per-candidate session state machine. All session
// mutation funnels through here; a per-candidate mutex serializes
// concurrent submissions for the same ID.
type Service struct {
	candidates  *sqlite.CandidateStorage
	sessions    *sqlite.SessionStorage
	results     *sqlite.ResultStorage
	transcripts transcription.Appender
	questions   QuestionGenerator
	speech      SpeechSynthesizer
	blobs       *blobstore.Store
	pool        transcription.Submitter
	cfg         config.InterviewConfig
	logger      *logger.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService creates a new interview session service
func NewService(
	candidates *sqlite.CandidateStorage,
	sessions *sqlite.SessionStorage,
	results *sqlite.ResultStorage,
	transcripts transcription.Appender,
	questions QuestionGenerator,
	speech SpeechSynthesizer,
	blobs *blobstore.Store,
	pool transcription.Submitter,
	cfg config.InterviewConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		candidates:  candidates,
		sessions:    sessions,
		results:     results,
		transcripts: transcripts,
		questions:   questions,
		speech:      speech,
		blobs:       blobs,
		pool:        pool,
		cfg:         cfg,
		logger:      log.Named("interview"),
		locks:       make(map[int64]*sync.Mutex),
	}
}

// candidateLock returns the mutex guarding one candidate's session
func (s *Service) candidateLock(candidateID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[candidateID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[candidateID] = lock
	}
	return lock
}

// Start authenticates the candidate, rejects duplicate interviews, and
// creates a session with exactly the configured number of questions,
// generated once and frozen. An unfinished existing session is resumed
// rather than regenerated.
func (s *Service) Start(ctx context.Context, candidateID int64) (*sqlite.SessionRecord, error) {
	hasResult, err := s.results.HasResult(candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for prior result: %w", err)
	}
	if hasResult {
		return nil, ErrAlreadyInterviewed
	}

	// Resume an in-flight session; questions never re-generate for a
	// session once frozen.
	if existing, err := s.sessions.Get(candidateID); err == nil {
		if existing.State != sqlite.StateComplete {
			s.logger.Info("Resuming existing session",
				logger.Int64("candidate_id", candidateID),
				logger.Int("current_index", existing.CurrentIndex))
			return existing, nil
		}
	} else if !errors.Is(err, sqlite.ErrSessionNotFound) {
		return nil, err
	}

	candidate, err := s.candidates.GetByID(candidateID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.GenerateQuestions(ctx, candidate.Name, candidate.ResumeText, s.cfg.QuestionCount, s.cfg.DomainTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to generate questions: %w", err)
	}

	now := time.Now().UTC()
	record := &sqlite.SessionRecord{
		CandidateID:  candidate.CandidateID,
		Name:         candidate.Name,
		Email:        candidate.Email,
		Phone:        candidate.Phone,
		ResumeText:   candidate.ResumeText,
		Questions:    questions,
		CurrentIndex: 0,
		Transcript:   []sqlite.QAEntry{},
		State:        sqlite.StateAwaitingAnswer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.sessions.Save(record); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info("Interview session started",
		logger.Int64("candidate_id", candidateID),
		logger.Int("questions", len(questions)))

	return record, nil
}

// CurrentQuestion returns the question at the session's current index,
// with a synthesized-speech rendering when the speech backend cooperates.
// Once the index reaches the question count the session moves to
// finalizing and ErrNoMoreQuestions is returned.
func (s *Service) CurrentQuestion(ctx context.Context, candidateID int64) (*Question, error) {
	session, err := s.sessions.Get(candidateID)
	if err != nil {
		return nil, err
	}

	if session.CurrentIndex >= len(session.Questions) {
		if session.State == sqlite.StateAwaitingAnswer {
			session.State = sqlite.StateFinalizing
			session.UpdatedAt = time.Now().UTC()
			if err := s.sessions.Save(session); err != nil {
				return nil, fmt.Errorf("failed to persist session state: %w", err)
			}
		}
		return nil, ErrNoMoreQuestions
	}

	question := &Question{
		Index: session.CurrentIndex,
		Total: len(session.Questions),
		Text:  session.Questions[session.CurrentIndex],
	}

	if s.speech != nil {
		audio, err := s.speech.Synthesize(ctx, question.Text)
		if err != nil {
			// Degrade to text-only display.
			s.logger.Warn("Speech synthesis failed",
				logger.Int64("candidate_id", candidateID),
				logger.Error(err))
		} else {
			question.Audio = audio
		}
	}

	return question, nil
}

// SubmitAnswer records an answer for the current question and advances
// the index by exactly one. Audio answers record a placeholder, persist
// the advanced session, and only then enqueue the transcription task, so
// the durable state never lags behind the handed-off work. Text answers
// are stored synchronously and no task is enqueued.
func (s *Service) SubmitAnswer(ctx context.Context, candidateID int64, payload AnswerPayload) (*NextStep, error) {
	lock := s.candidateLock(candidateID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Get(candidateID)
	if err != nil {
		return nil, err
	}

	if session.CurrentIndex >= len(session.Questions) {
		return nil, ErrNoMoreQuestions
	}

	index := session.CurrentIndex
	question := session.Questions[index]

	if payload.Audio != nil {
		audioPath, err := s.blobs.Save(payload.AudioExt, payload.Audio)
		if err != nil {
			return nil, fmt.Errorf("failed to store answer audio: %w", err)
		}

		session.Transcript = append(session.Transcript, sqlite.QAEntry{
			Question: question,
			Answer:   ProcessingPlaceholder,
		})
		if err := s.advance(session); err != nil {
			return nil, err
		}

		// Session durably advanced; safe to hand off.
		s.pool.Submit(transcription.Task{
			CandidateID:   candidateID,
			QuestionIndex: index,
			QuestionText:  question,
			AudioPath:     audioPath,
		})
	} else {
		answer := payload.Text
		if answer == "" {
			answer = "[no answer]"
		}

		session.Transcript = append(session.Transcript, sqlite.QAEntry{
			Question: question,
			Answer:   answer,
		})
		if err := s.advance(session); err != nil {
			return nil, err
		}

		if _, err := s.transcripts.Append(candidateID, index, question, answer); err != nil {
			return nil, fmt.Errorf("failed to store text answer: %w", err)
		}
	}

	done := session.CurrentIndex >= len(session.Questions)
	s.logger.Debug("Answer submitted",
		logger.Int64("candidate_id", candidateID),
		logger.Int("question_index", index),
		logger.Bool("done", done))

	return &NextStep{NextIndex: session.CurrentIndex, Done: done}, nil
}

// advance moves the session index forward by one and persists it
func (s *Service) advance(session *sqlite.SessionRecord) error {
	session.CurrentIndex++
	if session.CurrentIndex >= len(session.Questions) {
		session.State = sqlite.StateFinalizing
	}
	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.Save(session); err != nil {
		return fmt.Errorf("failed to persist session advance: %w", err)
	}
	return nil
}

// Get returns the persisted session for the candidate
func (s *Service) Get(candidateID int64) (*sqlite.SessionRecord, error) {
	return s.sessions.Get(candidateID)
}

// Complete marks the session complete and discards it; called once the
// evaluation result is durably recorded
func (s *Service) Complete(candidateID int64) error {
	session, err := s.sessions.Get(candidateID)
	if err != nil {
		if errors.Is(err, sqlite.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	session.State = sqlite.StateComplete
	session.UpdatedAt = time.Now().UTC()
	if err := s.sessions.Save(session); err != nil {
		return fmt.Errorf("failed to persist session completion: %w", err)
	}

	if err := s.sessions.Delete(candidateID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.locks, candidateID)
	s.mu.Unlock()

	return nil
}
