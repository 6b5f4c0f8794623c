package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/evaluation"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

// maxAnswerUploadBytes bounds a single recorded answer upload (16 MB).
const maxAnswerUploadBytes = 16 << 20

// Handler holds the API request handlers
type Handler struct {
	interview *interview.Service
	evaluator *evaluation.Evaluator
	gate      *transcription.Gate
	config    *config.Config
	logger    *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	interviewService *interview.Service,
	evaluator *evaluation.Evaluator,
	gate *transcription.Gate,
	cfg *config.Config,
	log *logger.Logger,
) *Handler {
	return &Handler{
		interview: interviewService,
		evaluator: evaluator,
		gate:      gate,
		config:    cfg,
		logger:    log.Named("api-handler"),
	}
}

// StartInterview authenticates the candidate and creates (or resumes)
// the interview session
func (h *Handler) StartInterview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CandidateID int64 `json:"candidate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.interview.Start(r.Context(), req.CandidateID)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrAlreadyInterviewed):
			writeError(w, http.StatusConflict, "this candidate ID has already completed the interview")
		case errors.Is(err, sqlite.ErrCandidateNotFound):
			writeError(w, http.StatusNotFound, "invalid candidate ID")
		default:
			h.logger.Error("Failed to start interview", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start interview")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candidate_id":   session.CandidateID,
		"name":           session.Name,
		"question_count": len(session.Questions),
		"current_index":  session.CurrentIndex,
	})
}

// GetQuestion returns the current question with its speech rendering
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := h.candidateID(w, r)
	if !ok {
		return
	}

	question, err := h.interview.CurrentQuestion(r.Context(), candidateID)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrNoMoreQuestions):
			writeJSON(w, http.StatusOK, map[string]any{"done": true})
		case errors.Is(err, sqlite.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "no active session for candidate")
		default:
			h.logger.Error("Failed to get question", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to get question")
		}
		return
	}

	writeJSON(w, http.StatusOK, question)
}

// SubmitAnswer accepts a recorded audio answer (multipart form field
// "audio_data") or a literal text answer (JSON body with "answer_text")
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := h.candidateID(w, r)
	if !ok {
		return
	}

	var payload interview.AnswerPayload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxAnswerUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		file, _, err := r.FormFile("audio_data")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing audio_data file")
			return
		}
		defer file.Close()

		payload.Audio = file
		payload.AudioExt = ".webm"
	} else {
		var req struct {
			AnswerText string `json:"answer_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		payload.Text = req.AnswerText
	}

	step, err := h.interview.SubmitAnswer(r.Context(), candidateID, payload)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrNoMoreQuestions):
			writeError(w, http.StatusConflict, "all questions already answered")
		case errors.Is(err, sqlite.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "no active session for candidate")
		default:
			h.logger.Error("Failed to submit answer", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to submit answer")
		}
		return
	}

	writeJSON(w, http.StatusOK, step)
}

// GetResults waits for the transcript to complete (bounded), evaluates
// it, and returns the final result. A gate timeout degrades to scoring
// the partial transcript.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := h.candidateID(w, r)
	if !ok {
		return
	}

	session, err := h.interview.Get(candidateID)
	if err != nil {
		if errors.Is(err, sqlite.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "no active session for candidate")
			return
		}
		h.logger.Error("Failed to load session", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	ready, err := h.gate.AwaitReady(r.Context(), candidateID, len(session.Questions))
	if err != nil {
		h.logger.Error("Completion gate failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed waiting for transcript")
		return
	}

	result, err := h.evaluator.Evaluate(r.Context(), candidateID)
	if err != nil {
		h.logger.Error("Evaluation failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	if err := h.interview.Complete(candidateID); err != nil {
		h.logger.Error("Failed to complete session", logger.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"candidate_id":    result.CandidateID,
		"name":            result.Name,
		"transcript":      result.FullTranscript,
		"question_scores": result.QuestionScores,
		"final_score":     result.FinalScore,
		"summary":         result.Summary,
		"complete":        ready,
	})
}

// GetHealth returns the service health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetConfig returns the non-secret runtime configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"question_count":    h.config.Interview.QuestionCount,
		"poll_interval_sec": h.config.Interview.PollIntervalSecs,
		"poll_max_attempts": h.config.Interview.PollMaxAttempts,
		"workers":           h.config.Transcription.Workers,
	})
}

// candidateID parses the candidate ID from the URL
func (h *Handler) candidateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candidate ID")
		return 0, false
	}
	return id, true
}
