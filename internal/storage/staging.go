package storage

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/internal/logger"
	"go-opening-detector/pkg/naming"

	"github.com/sirupsen/logrus"
)

// Stager copies inbound uploads to uniquely named files on local disk
type Stager struct {
	dir string
	ids naming.IDGenerator
}

// NewStager creates a stager writing into dir
func NewStager(dir string, ids naming.IDGenerator) *Stager {
	return &Stager{dir: dir, ids: ids}
}

// StagedUpload is a temporary on-disk copy of one request's upload.
// The owner must call Release exactly once it is done; extra calls are no-ops.
type StagedUpload struct {
	path string
	size int64

	once       sync.Once
	releaseErr error
}

// Path returns the absolute location of the staged file
func (u *StagedUpload) Path() string { return u.path }

// Name returns the generated file name
func (u *StagedUpload) Name() string { return filepath.Base(u.path) }

// Size returns the number of bytes staged
func (u *StagedUpload) Size() int64 { return u.size }

// Release deletes the staged file. A file that is already gone counts as released.
func (u *StagedUpload) Release() error {
	u.once.Do(func() {
		if err := os.Remove(u.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.releaseErr = err
			logger.WithError(err).WithField("path", u.path).Warn("Failed to remove staged upload")
		}
	})
	return u.releaseErr
}

// Stage writes the full body to temp_<id>.<ext> and returns only once the
// file is completely written and synced. On failure nothing is left behind.
func (s *Stager) Stage(filename string, body io.Reader) (*StagedUpload, error) {
	name := naming.FileName("temp", s.ids.NewID(), naming.Extension(filename))
	path, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to resolve staging path", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create staged upload", err)
	}

	src := &recordingReader{r: body}
	n, copyErr := io.Copy(f, src)
	if copyErr == nil {
		copyErr = f.Sync()
	}
	closeErr := f.Close()

	fail := func(appErr *apperrors.AppError) (*StagedUpload, error) {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.WithError(rmErr).WithField("path", path).Warn("Failed to remove partial staged upload")
		}
		return nil, appErr
	}

	switch {
	case src.err != nil:
		var maxErr *http.MaxBytesError
		if errors.As(src.err, &maxErr) {
			return fail(apperrors.NewClientInputError("uploaded file exceeds the size limit", src.err).
				WithStatus(http.StatusRequestEntityTooLarge))
		}
		return fail(apperrors.NewClientInputError("failed to read uploaded file", src.err))
	case copyErr != nil:
		return fail(apperrors.NewStorageError("failed to write staged upload", copyErr))
	case closeErr != nil:
		return fail(apperrors.NewStorageError("failed to close staged upload", closeErr))
	case n == 0:
		return fail(apperrors.NewClientInputError("uploaded file is empty", nil))
	}

	logger.WithFields(logrus.Fields{
		"path":     path,
		"filename": filename,
		"bytes":    n,
	}).Debug("Upload staged")

	return &StagedUpload{path: path, size: n}, nil
}

// recordingReader remembers the first non-EOF read error so that a failed
// copy can be blamed on the source rather than the destination.
type recordingReader struct {
	r   io.Reader
	err error
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}
