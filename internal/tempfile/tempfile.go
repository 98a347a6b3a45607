// Package tempfile hands out request-scoped temporary files and removes all
// of them when the scope closes.
package tempfile

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

const pattern = "pdf2docx-*"

// Scope owns every file it creates. The zero value is not usable; call NewScope.
type Scope struct {
	dir string
	log logrus.FieldLogger

	mu     sync.Mutex
	paths  []string
	closed bool
}

// NewScope creates files under dir, or the OS temp dir when dir is empty.
func NewScope(dir string, log logrus.FieldLogger) *Scope {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Scope{dir: dir, log: log}
}

// Write stores content in a new file ending in suffix and returns its path.
func (s *Scope) Write(content []byte, suffix string) (string, error) {
	return s.create(suffix, func(f *os.File) error {
		_, err := f.Write(content)
		return err
	})
}

// WriteFrom streams r into a new file ending in suffix.
func (s *Scope) WriteFrom(r io.Reader, suffix string) (string, error) {
	return s.create(suffix, func(f *os.File) error {
		_, err := io.Copy(f, r)
		return err
	})
}

// Reserve allocates an empty file for a collaborator that insists on
// writing to a path.
func (s *Scope) Reserve(suffix string) (string, error) {
	return s.create(suffix, func(*os.File) error { return nil })
}

// Dir allocates a temporary directory that is removed with the scope.
func (s *Scope) Dir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", os.ErrClosed
	}
	p, err := os.MkdirTemp(s.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	s.paths = append(s.paths, p)
	return p, nil
}

func (s *Scope) create(suffix string, fill func(*os.File) error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", os.ErrClosed
	}
	f, err := os.CreateTemp(s.dir, pattern+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	// Track before filling so a failed write is still cleaned up.
	s.paths = append(s.paths, f.Name())
	if err := fill(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

// Close removes everything the scope created. Removal failures are logged
// and otherwise ignored, so Close always returns nil. Safe to call twice.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for i := len(s.paths) - 1; i >= 0; i-- {
		p := s.paths[i]
		if err := os.RemoveAll(p); err != nil {
			s.log.WithError(err).WithField("path", p).Warn("failed to remove temp file")
			continue
		}
		s.log.WithField("path", p).Debug("removed temp file")
	}
	s.paths = nil
	return nil
}
