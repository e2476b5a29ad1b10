package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"go-opening-detector/internal/logger"
	"go-opening-detector/internal/storage"
	"go-opening-detector/pkg/models"
	"go-opening-detector/pkg/naming"
)

const (
	resultPrefix = "result"
	imagePrefix  = "detected"
)

// fileArtifactRepository implements ArtifactRepository on a LocalStore with
// an optional remote mirror
type fileArtifactRepository struct {
	store  *storage.LocalStore
	mirror storage.Mirror
	ids    naming.IDGenerator
}

// NewArtifactRepository creates a repository. mirror may be nil.
func NewArtifactRepository(store *storage.LocalStore, mirror storage.Mirror, ids naming.IDGenerator) ArtifactRepository {
	return &fileArtifactRepository{
		store:  store,
		mirror: mirror,
		ids:    ids,
	}
}

// SaveResult stores the result with 4-space indentation and a trailing newline
func (r *fileArtifactRepository) SaveResult(ctx context.Context, result models.DetectionResult) (*Artifact, error) {
	result = models.NewDetectionResult(result.Detections)
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeResult, err)
	}
	data = append(data, '\n')

	name := naming.FileName(resultPrefix, r.ids.NewID(), "json")
	return r.save(ctx, name, ArtifactResult, data, "application/json")
}

// SaveImage stores JPEG bytes
func (r *fileArtifactRepository) SaveImage(ctx context.Context, data []byte) (*Artifact, error) {
	name := naming.FileName(imagePrefix, r.ids.NewID(), "jpg")
	return r.save(ctx, name, ArtifactImage, data, "image/jpeg")
}

func (r *fileArtifactRepository) save(ctx context.Context, name string, kind ArtifactKind, data []byte, contentType string) (*Artifact, error) {
	if err := r.store.Write(ctx, name, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactWrite, name, err)
	}
	artifact := &Artifact{Name: name, Kind: kind, Size: len(data)}

	if r.mirror != nil {
		if err := r.mirror.Put(ctx, name, data, contentType); err != nil {
			// an artifact exists locally only if its mirror copy exists
			if rmErr := r.store.Remove(name); rmErr != nil {
				logger.WithError(rmErr).WithField("artifact", name).Warn("Failed to remove artifact after mirror failure")
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrMirrorWrite, name, err)
		}
		artifact.Mirrored = true
	}

	logger.WithFields(logrus.Fields{
		"artifact": name,
		"kind":     kind,
		"size":     len(data),
		"mirrored": artifact.Mirrored,
	}).Debug("Artifact persisted")

	return artifact, nil
}

// Delete removes the local file and the mirror copy. Both are attempted.
func (r *fileArtifactRepository) Delete(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return nil
	}

	var errs []error
	if err := r.store.Remove(artifact.Name); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", artifact.Name, err))
	}
	if artifact.Mirrored && r.mirror != nil {
		if err := r.mirror.Delete(ctx, artifact.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s delete %s: %w", r.mirror.Name(), artifact.Name, err))
		}
	}
	return errors.Join(errs...)
}
