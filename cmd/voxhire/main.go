package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/voxhire/voxhire/internal/api"
	"github.com/voxhire/voxhire/internal/blobstore"
	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/evaluation"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/llm"
	"github.com/voxhire/voxhire/internal/resume"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	shortlist := flag.Bool("shortlist", false, "run the resume shortlisting batch and exit")
	sendInvites := flag.Bool("send-invites", false, "email invitations to shortlisted candidates (with -shortlist)")
	resetResults := flag.Bool("reset-results", false, "drop and recreate the interview results table, then exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *shortlist, *sendInvites, *resetResults); err != nil {
		log.Error("Fatal error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, shortlist, sendInvites, resetResults bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	candidates := sqlite.NewCandidateStorage(db, log)
	sessions := sqlite.NewSessionStorage(db, log)
	transcripts := sqlite.NewTranscriptStorage(db, log)
	results := sqlite.NewResultStorage(db, log)

	if resetResults {
		log.Info("Resetting interview results table")
		return results.Reset()
	}

	llmClient := llm.NewClient(cfg.OpenAI, log)
	executor := retry.NewExecutor(cfg.OpenAI.RetryMaxAttempts, cfg.OpenAI.RetryBaseDelay(), log)

	if shortlist {
		notifier := resume.NewSMTPNotifier(cfg.SMTP, log)
		shortlister := resume.NewShortlister(candidates, llmClient, notifier, executor, cfg.Resume, log)
		return shortlister.Process(ctx, sendInvites)
	}

	blobs, err := blobstore.New(cfg.Interview.AnswersDir, log)
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	pool := transcription.NewPool(
		ctx,
		cfg.Transcription.Workers,
		cfg.Transcription.QueueSize,
		llmClient,
		executor,
		transcripts,
		blobs,
		log,
	)
	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	gate := transcription.NewGate(transcripts, cfg.Interview.PollInterval(), cfg.Interview.PollMaxAttempts, log)

	interviewService := interview.NewService(
		candidates,
		sessions,
		results,
		transcripts,
		llmClient,
		llmClient,
		blobs,
		pool,
		cfg.Interview,
		log,
	)

	evaluator := evaluation.NewEvaluator(candidates, transcripts, results, llmClient, executor, log)

	router := api.NewRouter(interviewService, evaluator, gate, cfg, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", logger.Error(err))
	}
	if err := pool.Stop(); err != nil {
		log.Error("Worker pool shutdown failed", logger.Error(err))
	}

	return nil
}
