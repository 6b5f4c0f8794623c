package resume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/retry"
	"github.com/voxhire/voxhire/internal/storage/sqlite"
	"github.com/voxhire/voxhire/pkg/logger"
)

// strongResume matches enough skills keywords to clear the threshold.
const strongResume = `Jane Doe
jane@example.com
Machine learning engineer: python, sql, sklearn, pandas, numpy,
tensorflow, pytorch, docker, git, ci/cd, mlflow, kubeflow, gcp, bigquery.
Deployed production pipeline with monitoring for drift, scalable rest api.
Projects in classification, regression, nlp, computer vision, deep learning.
Computer science education, statistics. Collaboration, leadership.`

type fakeExtractor struct {
	name  string
	phone string
	email string
	err   error
}

func (f *fakeExtractor) ExtractContact(ctx context.Context, resumeText string) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	return f.name, f.phone, f.email, nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Notify(to, subject, body string) error {
	f.sent = append(f.sent, to)
	return nil
}

func newShortlisterEnv(t *testing.T, extractor ContactExtractor) (*Shortlister, *sqlite.CandidateStorage, *fakeNotifier, string) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Nop()
	candidates := sqlite.NewCandidateStorage(db, log)
	notifier := &fakeNotifier{}
	executor := retry.NewExecutor(2, time.Millisecond, log)

	resumesDir := t.TempDir()
	cfg := config.ResumeConfig{
		ResumesDir:         resumesDir,
		ShortlistedDir:     t.TempDir(),
		JDPath:             filepath.Join(resumesDir, "missing_jd.txt"),
		ShortlistThreshold: 60,
		CompanyName:        "Voxhire",
		InterviewLink:      "http://localhost:8080",
	}

	return NewShortlister(candidates, extractor, notifier, executor, cfg, log), candidates, notifier, resumesDir
}

func writeResume(t *testing.T, dir, name, text string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
		t.Fatalf("failed to write resume: %v", err)
	}
}

func TestProcessShortlistsStrongResume(t *testing.T) {
	extractor := &fakeExtractor{name: "Jane Doe", email: "jane@example.com"}
	shortlister, candidates, notifier, resumesDir := newShortlisterEnv(t, extractor)

	writeResume(t, resumesDir, "jane.txt", strongResume)

	if err := shortlister.Process(context.Background(), true); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	record, err := candidates.GetByID(100)
	if err != nil {
		t.Fatalf("shortlisted candidate not stored: %v", err)
	}
	if !record.Shortlisted {
		t.Fatalf("strong resume must be shortlisted, score %v", record.ATSScore)
	}
	if record.ATSScore < 60 {
		t.Fatalf("expected score above threshold, got %v", record.ATSScore)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "jane@example.com" {
		t.Fatalf("expected one invitation to jane@example.com, got %v", notifier.sent)
	}
}

func TestProcessSkipsWeakResume(t *testing.T) {
	extractor := &fakeExtractor{name: "John Roe", email: "john@example.com"}
	shortlister, candidates, notifier, resumesDir := newShortlisterEnv(t, extractor)

	writeResume(t, resumesDir, "john.txt", "Cashier with retail experience.")

	if err := shortlister.Process(context.Background(), true); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	// Stored, but not shortlisted: GetByID filters to shortlisted rows.
	if _, err := candidates.GetByID(100); !errors.Is(err, sqlite.ErrCandidateNotFound) {
		t.Fatalf("weak resume must not be shortlisted, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("no invitations expected, got %v", notifier.sent)
	}
}

func TestProcessRequiresContact(t *testing.T) {
	extractor := &fakeExtractor{name: "No Contact"}
	shortlister, candidates, _, resumesDir := newShortlisterEnv(t, extractor)

	writeResume(t, resumesDir, "anon.txt", strongResume)

	if err := shortlister.Process(context.Background(), false); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if _, err := candidates.GetByID(100); !errors.Is(err, sqlite.ErrCandidateNotFound) {
		t.Fatalf("resume without contact channel must not be shortlisted, got %v", err)
	}
}

func TestProcessContinuesPastExtractionFailure(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("invalid argument")}
	shortlister, candidates, _, resumesDir := newShortlisterEnv(t, extractor)

	writeResume(t, resumesDir, "jane.txt", strongResume)

	if err := shortlister.Process(context.Background(), false); err != nil {
		t.Fatalf("batch must survive per-resume failures: %v", err)
	}

	// The zero-score row is recorded so the batch stays accountable.
	next, err := candidates.NextCandidateID()
	if err != nil {
		t.Fatalf("next candidate id failed: %v", err)
	}
	if next != 101 {
		t.Fatalf("expected failed resume to occupy ID 100, next is %d", next)
	}
}

func TestProcessAssignsSequentialIDs(t *testing.T) {
	extractor := &fakeExtractor{name: "Jane Doe", email: "jane@example.com"}
	shortlister, candidates, _, resumesDir := newShortlisterEnv(t, extractor)

	writeResume(t, resumesDir, "a.txt", strongResume)
	writeResume(t, resumesDir, "b.txt", strongResume)

	if err := shortlister.Process(context.Background(), false); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	shortlisted, err := candidates.GetShortlisted(10)
	if err != nil {
		t.Fatalf("get shortlisted failed: %v", err)
	}
	if len(shortlisted) != 2 {
		t.Fatalf("expected 2 shortlisted candidates, got %d", len(shortlisted))
	}
	for _, record := range shortlisted {
		if record.CandidateID != 100 && record.CandidateID != 101 {
			t.Fatalf("unexpected candidate ID %d", record.CandidateID)
		}
		if !strings.Contains(record.ResumeText, "Machine learning engineer") {
			t.Fatal("stored record must carry the resume text")
		}
	}
}
