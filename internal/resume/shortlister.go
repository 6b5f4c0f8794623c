package resume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/pkg/logger"
)

// ContactExtractor pulls the candidate's contact details out of raw
// resume text
type ContactExtractor interface {
	ExtractContact(ctx context.Context, resumeText string) (name, phone, email string, err error)
}

// Shortlister scores a batch of resumes against the job description and
// shortlists those above the threshold, inviting them by email
type Shortlister struct {
	candidates *sqlite.CandidateStorage
	extractor  ContactExtractor
	notifier   Notifier
	executor   *retry.Executor
	cfg        config.ResumeConfig
	logger     *logger.Logger
}

// NewShortlister creates a new resume shortlister
func NewShortlister(
	candidates *sqlite.CandidateStorage,
	extractor ContactExtractor,
	notifier Notifier,
	executor *retry.Executor,
	cfg config.ResumeConfig,
	log *logger.Logger,
) *Shortlister {
	return &Shortlister{
		candidates: candidates,
		extractor:  extractor,
		notifier:   notifier,
		executor:   executor,
		cfg:        cfg,
		logger:     log.Named("shortlister"),
	}
}

// Process scores every resume text file in the configured directory as
// one batch. A candidate is shortlisted when the ATS score clears the
// threshold and at least one contact channel exists. Per-resume failures
// record a zero-score row and the batch continues.
func (s *Shortlister) Process(ctx context.Context, sendInvites bool) error {
	if _, err := LoadJD(s.cfg.JDPath); err != nil {
		s.logger.Warn("Job description not readable, scoring with default keywords only",
			logger.Error(err))
	}
	keywords := DefaultKeywords()

	entries, err := os.ReadDir(s.cfg.ResumesDir)
	if err != nil {
		return fmt.Errorf("failed to list resumes directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			paths = append(paths, filepath.Join(s.cfg.ResumesDir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		s.logger.Info("No resumes to process")
		return nil
	}

	batchID := time.Now().Unix()
	nextID, err := s.candidates.NextCandidateID()
	if err != nil {
		return err
	}

	s.logger.Info("Processing resume batch",
		logger.Int("resumes", len(paths)),
		logger.Int64("batch_id", batchID))

	for i, path := range paths {
		candidateID := nextID + int64(i)
		record := s.processOne(ctx, path, candidateID, batchID, keywords)

		if err := s.candidates.Insert(record); err != nil {
			s.logger.Error("Failed to store candidate",
				logger.Int64("candidate_id", candidateID),
				logger.Error(err))
			continue
		}

		if record.Shortlisted && sendInvites && strings.Contains(record.Email, "@") {
			s.invite(record)
		}
	}

	return nil
}

// processOne scores a single resume file
func (s *Shortlister) processOne(ctx context.Context, path string, candidateID, batchID int64, keywords Keywords) *sqlite.CandidateRecord {
	record := &sqlite.CandidateRecord{
		CandidateID: candidateID,
		BatchID:     batchID,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("Failed to read resume", logger.String("path", path), logger.Error(err))
		record.ResumeText = err.Error()
		return record
	}
	text := string(data)
	record.ResumeText = text

	var name, phone, email string
	err = s.executor.Do(ctx, func() error {
		var exErr error
		name, phone, email, exErr = s.extractor.ExtractContact(ctx, text)
		return exErr
	})
	if err != nil {
		s.logger.Error("Contact extraction failed", logger.String("path", path), logger.Error(err))
		return record
	}

	record.Name = name
	record.Phone = phone
	record.Email = email
	record.ATSScore = Score(text, keywords)
	record.Shortlisted = record.ATSScore >= s.cfg.ShortlistThreshold && (email != "" || phone != "")

	if record.Shortlisted {
		if err := s.copyToShortlisted(path); err != nil {
			s.logger.Warn("Failed to copy shortlisted resume", logger.Error(err))
		}
	}

	s.logger.Info("Resume scored",
		logger.Int64("candidate_id", candidateID),
		logger.String("name", name),
		logger.Float64("ats_score", record.ATSScore),
		logger.Bool("shortlisted", record.Shortlisted))

	return record
}

func (s *Shortlister) copyToShortlisted(path string) error {
	if err := os.MkdirAll(s.cfg.ShortlistedDir, 0o755); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dst := filepath.Join(s.cfg.ShortlistedDir, filepath.Base(path))
	return os.WriteFile(dst, data, 0o644)
}

// invite emails the interview invitation to a shortlisted candidate
func (s *Shortlister) invite(record *sqlite.CandidateRecord) {
	firstName := record.Name
	if parts := strings.Fields(record.Name); len(parts) > 0 {
		firstName = parts[0]
	}
	if firstName == "" {
		firstName = "Candidate"
	}

	body := fmt.Sprintf(`Hi %s,

You have been shortlisted for the Machine Learning Engineer role at %s.

Candidate ID: %d

Please complete your voice interview:
%s

Best regards,
%s Recruitment Team
`, firstName, s.cfg.CompanyName, record.CandidateID, s.cfg.InterviewLink, s.cfg.CompanyName)

	if err := s.notifier.Notify(record.Email, "Interview Invitation - Machine Learning Engineer", body); err != nil {
		s.logger.Error("Failed to send invitation",
			logger.Int64("candidate_id", record.CandidateID),
			logger.Error(err))
	}
}
