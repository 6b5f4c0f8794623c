package transcription

import (
	"bytes"
	"context"
	"runtime/debug"
	"sync"

	"github.com/voxhire/voxhire/internal/blobstore"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/pkg/logger"
)

// Pool is a fixed-size pool of workers that transcribe recorded answers
// in the background. Submission is fire-and-forget: callers never observe
// task success or failure directly; completion shows up in the transcript
// store, and a failed task simply leaves its slot empty for the
// completion gate to time out on.
type Pool struct {
	ctx         context.Context
	cancel      context.CancelFunc
	tasks       chan Task
	workers     int
	transcriber Transcriber
	executor    *retry.Executor
	store       Appender
	blobs       *blobstore.Store
	logger      *logger.Logger
	wg          sync.WaitGroup
}

// NewPool creates a new transcription worker pool
func NewPool(
	ctx context.Context,
	workers int,
	queueSize int,
	transcriber Transcriber,
	executor *retry.Executor,
	store Appender,
	blobs *blobstore.Store,
	log *logger.Logger,
) *Pool {
	poolCtx, poolCancel := context.WithCancel(ctx)

	return &Pool{
		ctx:         poolCtx,
		cancel:      poolCancel,
		tasks:       make(chan Task, queueSize),
		workers:     workers,
		transcriber: transcriber,
		executor:    executor,
		store:       store,
		blobs:       blobs,
		logger:      log.Named("transcription-pool"),
	}
}

// Start launches the workers
func (p *Pool) Start() error {
	p.logger.Info("Starting transcription worker pool",
		logger.Int("workers", p.workers),
		logger.Int("queue_size", cap(p.tasks)))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return nil
}

// Stop cancels in-flight context and waits for workers to drain
func (p *Pool) Stop() error {
	p.logger.Info("Stopping transcription worker pool")
	p.cancel()
	p.wg.Wait()
	return nil
}

// Submit enqueues a task. The call does not block on transcription;
// tasks beyond worker capacity queue until a worker frees up.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.ctx.Done():
		p.logger.Warn("Pool stopped, dropping task",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex))
	case p.tasks <- task:
		p.logger.Debug("Task enqueued",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex))
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(logger.Int("worker", id))
	log.Debug("Worker started")

	for {
		select {
		case <-p.ctx.Done():
			log.Debug("Worker stopped")
			return
		case task := <-p.tasks:
			p.processTask(log, task)
		}
	}
}

// processTask transcribes one answer and appends it to the transcript
// store. Failures are terminal for the task: logged and dropped, never
// requeued.
func (p *Pool) processTask(log *logger.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing task",
				logger.Int64("candidate_id", task.CandidateID),
				logger.Int("question_index", task.QuestionIndex),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
		}
	}()

	audio, err := p.blobs.Read(task.AudioPath)
	if err != nil {
		log.Error("Failed to read answer audio, dropping task",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex),
			logger.Error(err))
		return
	}

	text, err := retry.DoValue(p.ctx, p.executor, func() (string, error) {
		return p.transcriber.Transcribe(p.ctx, bytes.NewReader(audio))
	})
	if err != nil {
		log.Error("Transcription failed, dropping task",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex),
			logger.Error(err))
		return
	}

	stored, err := p.store.Append(task.CandidateID, task.QuestionIndex, task.QuestionText, text)
	if err != nil {
		log.Error("Failed to store transcript entry",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex),
			logger.Error(err))
		return
	}

	if !stored {
		log.Warn("Duplicate transcript entry skipped",
			logger.Int64("candidate_id", task.CandidateID),
			logger.Int("question_index", task.QuestionIndex))
		return
	}

	if err := p.blobs.Remove(task.AudioPath); err != nil {
		log.Warn("Failed to clean up answer blob", logger.Error(err))
	}

	log.Debug("Transcript entry stored",
		logger.Int64("candidate_id", task.CandidateID),
		logger.Int("question_index", task.QuestionIndex))
}
