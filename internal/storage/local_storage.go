package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for artifact names that would escape the root
var ErrInvalidName = errors.New("invalid artifact name")

// LocalStore persists artifacts as flat files under a single results root
type LocalStore struct {
	root     string
	permFile os.FileMode
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("results root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results root %s: %w", root, err)
	}
	return &LocalStore{root: root, permFile: 0o644}, nil
}

// Root returns the results root directory
func (s *LocalStore) Root() string {
	return s.root
}

// Path maps an artifact name to its location under the root
func (s *LocalStore) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, name), nil
}

// Write stores data under name atomically: readers either see the complete
// artifact or nothing.
func (s *LocalStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest, err := s.Path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(s.permFile); err != nil {
		return cleanup(err)
	}
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Remove deletes an artifact; a missing artifact is not an error
func (s *LocalStore) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether an artifact is present
func (s *LocalStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
