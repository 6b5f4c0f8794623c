package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Interview     InterviewConfig     `toml:"interview"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Storage       StorageConfig       `toml:"storage"`
	Resume        ResumeConfig        `toml:"resume"`
	SMTP          SMTPConfig          `toml:"smtp"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// OpenAIConfig represents the OpenAI backend configuration.
// The API key is taken from the OPENAI_API_KEY environment variable.
type OpenAIConfig struct {
	APIKey             string `toml:"-"`
	ChatModel          string `toml:"chat_model"`
	TranscriptionModel string `toml:"transcription_model"`
	SpeechModel        string `toml:"speech_model"`
	SpeechVoice        string `toml:"speech_voice"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	RetryMaxAttempts   int    `toml:"retry_max_attempts"`
	RetryBaseDelaySecs int    `toml:"retry_base_delay_seconds"`
}

// InterviewConfig represents the interview session configuration
type InterviewConfig struct {
	QuestionCount    int    `toml:"question_count"`
	DomainTopic      string `toml:"domain_topic"`
	AnswersDir       string `toml:"answers_dir"`
	PollIntervalSecs int    `toml:"poll_interval_seconds"`
	PollMaxAttempts  int    `toml:"poll_max_attempts"`
}

// TranscriptionConfig represents the transcription worker pool configuration
type TranscriptionConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// StorageConfig represents the database configuration
type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

// ResumeConfig represents the resume shortlisting pipeline configuration
type ResumeConfig struct {
	ResumesDir         string  `toml:"resumes_dir"`
	ShortlistedDir     string  `toml:"shortlisted_dir"`
	JDPath             string  `toml:"jd_path"`
	ShortlistThreshold float64 `toml:"shortlist_threshold"`
	CompanyName        string  `toml:"company_name"`
	InterviewLink      string  `toml:"interview_link"`
}

// SMTPConfig represents the notification email configuration.
// The password is taken from the SMTP_PASSWORD environment variable.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Sender   string `toml:"sender"`
	Password string `toml:"-"`
}

// Load loads the configuration from the given TOML file and applies
// environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		OpenAI: OpenAIConfig{
			ChatModel:          "gpt-4o",
			TranscriptionModel: "whisper-1",
			SpeechModel:        "tts-1",
			SpeechVoice:        "alloy",
			TimeoutSeconds:     120,
			RetryMaxAttempts:   5,
			RetryBaseDelaySecs: 2,
		},
		Interview: InterviewConfig{
			QuestionCount:    10,
			DomainTopic:      "Machine Learning concepts",
			AnswersDir:       "data/answers",
			PollIntervalSecs: 1,
			PollMaxAttempts:  15,
		},
		Transcription: TranscriptionConfig{
			Workers:   3,
			QueueSize: 100,
		},
		Storage: StorageConfig{
			DatabasePath: "data/voxhire.db",
		},
		Resume: ResumeConfig{
			ResumesDir:         "data/resumes",
			ShortlistedDir:     "data/resumes-shortlisted",
			JDPath:             "data/machine_learning_jd.txt",
			ShortlistThreshold: 60,
			CompanyName:        "Voxhire",
			InterviewLink:      "http://localhost:8080",
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
	}
}

func (c *Config) validate() error {
	if c.Interview.QuestionCount <= 0 {
		return fmt.Errorf("interview.question_count must be positive, got %d", c.Interview.QuestionCount)
	}
	if c.Transcription.Workers <= 0 {
		return fmt.Errorf("transcription.workers must be positive, got %d", c.Transcription.Workers)
	}
	if c.Interview.PollMaxAttempts <= 0 {
		return fmt.Errorf("interview.poll_max_attempts must be positive, got %d", c.Interview.PollMaxAttempts)
	}
	return nil
}

// PollInterval returns the completion gate poll interval as a duration
func (c *InterviewConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// RetryBaseDelay returns the backoff base delay as a duration
func (c *OpenAIConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelaySecs) * time.Second
}
