package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/pkg/logger"
)

// Client wraps the OpenAI API for question generation, answer
// transcription, question speech synthesis and transcript scoring
type Client struct {
	client             openai.Client
	chatModel          string
	transcriptionModel string
	speechModel        string
	speechVoice        string
	logger             *logger.Logger
}

// NewClient creates a new OpenAI-backed client
func NewClient(cfg config.OpenAIConfig, log *logger.Logger) *Client {
	if cfg.APIKey == "" {
		log.Warn("OpenAI API key is empty - LLM-backed features will not work")
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
		),
		chatModel:          cfg.ChatModel,
		transcriptionModel: cfg.TranscriptionModel,
		speechModel:        cfg.SpeechModel,
		speechVoice:        cfg.SpeechVoice,
		logger:             log.Named("llm-client"),
	}
}

// GenerateQuestions asks the chat backend for interview questions tailored
// to the candidate's resume. The backend must return exactly count
// questions or the call fails.
func (c *Client) GenerateQuestions(ctx context.Context, name, resumeText string, count int, domainTopic string) ([]string, error) {
	prompt := questionPrompt(name, resumeText, count, domainTopic)

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("question generation request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("question generation returned no choices")
	}

	cleaned := StripCodeFences(completion.Choices[0].Message.Content)

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	if len(questions) != count {
		return nil, fmt.Errorf("expected %d questions, got %d", count, len(questions))
	}

	c.logger.Debug("Generated interview questions",
		logger.String("candidate", name),
		logger.Int("count", len(questions)))

	return questions, nil
}

// Transcribe sends recorded answer audio to the transcription backend and
// returns the transcribed text
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	transcription, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.transcriptionModel),
		File:  audio,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	if transcription.Text == "" {
		return "[No speech detected]", nil
	}

	return transcription.Text, nil
}

// Synthesize renders the question text as speech audio for playback
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModel(c.speechModel),
		Voice: openai.AudioSpeechNewParamsVoice(c.speechVoice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	return audio, nil
}

// ExtractContact pulls the candidate's name, phone number and email out
// of raw resume text. Missing fields come back empty.
func (c *Client) ExtractContact(ctx context.Context, resumeText string) (name, phone, email string, err error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(contactPrompt(resumeText)),
		},
	})
	if err != nil {
		return "", "", "", fmt.Errorf("contact extraction request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", "", "", fmt.Errorf("contact extraction returned no choices")
	}

	var contact struct {
		Name  string `json:"name"`
		Phone string `json:"phone_number"`
		Email string `json:"email"`
	}
	cleaned := StripCodeFences(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &contact); err != nil {
		return "", "", "", fmt.Errorf("failed to parse extracted contact: %w", err)
	}

	return contact.Name, contact.Phone, contact.Email, nil
}

// ScoreTranscript sends the full interview transcript to the scoring
// backend and returns the raw model output. Parsing (and degradation on
// parse failure) is the evaluator's responsibility.
func (c *Client) ScoreTranscript(ctx context.Context, fullTranscript string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(scoringPrompt(fullTranscript)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("scoring request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("scoring returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
