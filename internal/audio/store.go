// Package audio manages transient synthesized-speech artifacts. Each artifact
// lives for one call attempt and is released after a fixed grace period.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names Persist could not have produced.
var ErrInvalidName = errors.New("invalid audio artifact name")

var namePattern = regexp.MustCompile(`^emergency-call-\d+-[0-9a-f]{8}\.mp3$`)

// Handle identifies a persisted artifact.
type Handle struct {
	Name string
	Path string
}

// Store writes artifacts under a single directory.
type Store struct {
	dir string
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// Persist writes data to a new uniquely named file.
func (s *Store) Persist(data []byte) (Handle, error) {
	name := fmt.Sprintf("emergency-call-%d-%s.mp3", time.Now().UnixNano(), uuid.New().String()[:8])
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create audio artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return Handle{}, fmt.Errorf("failed to write audio artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Handle{}, fmt.Errorf("failed to close audio artifact: %w", err)
	}
	return Handle{Name: name, Path: path}, nil
}

// Release deletes the artifact. Releasing twice is not an error.
func (s *Store) Release(h Handle) error {
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove audio artifact %s: %w", h.Name, err)
	}
	return nil
}

// Path resolves a served artifact name to its file, refusing anything that
// does not look like a Persist result.
func (s *Store) Path(name string) (string, error) {
	if !namePattern.MatchString(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}
