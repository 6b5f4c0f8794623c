package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/voxhire/voxhire/pkg/logger"
)

// Store keeps recorded answer audio on local disk under uuid-named files.
// Workers read the blobs back by the handle returned from Save.
type Store struct {
	dir    string
	logger *logger.Logger
}

// New creates a blob store rooted at dir, creating it if needed
func New(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", dir, err)
	}

	return &Store{
		dir:    dir,
		logger: log.Named("blobstore"),
	}, nil
}

// Save writes the reader's contents to a new uuid-named file with the
// given extension and returns its path
func (s *Store) Save(ext string, r io.Reader) (string, error) {
	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob file: %w", err)
	}

	s.logger.Debug("Saved answer blob", logger.String("path", path))
	return path, nil
}

// Read returns the full contents of a stored blob
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes a stored blob; missing files are not an error
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob %s: %w", path, err)
	}
	return nil
}
