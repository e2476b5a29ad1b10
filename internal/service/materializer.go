package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"go-opening-detector/internal/annotate"
	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/internal/logger"
	"go-opening-detector/internal/repository"
	"go-opening-detector/pkg/models"
)

// Artifacts are the files persisted for one request. Image is nil when
// annotation was not requested.
type Artifacts struct {
	Result *repository.Artifact
	Image  *repository.Artifact
}

// Materializer persists a detection result and, optionally, an annotated
// copy of the source image
type Materializer interface {
	Materialize(ctx context.Context, result models.DetectionResult, sourcePath string, withImage bool) (*Artifacts, error)
}

// artifactMaterializer implements Materializer. Either every requested
// artifact is written or none remains.
type artifactMaterializer struct {
	repo      repository.ArtifactRepository
	annotator annotate.Annotator
}

// NewMaterializer creates a new materializer
func NewMaterializer(repo repository.ArtifactRepository, annotator annotate.Annotator) Materializer {
	return &artifactMaterializer{
		repo:      repo,
		annotator: annotator,
	}
}

// Materialize writes the JSON artifact first, then the annotated image
func (m *artifactMaterializer) Materialize(ctx context.Context, result models.DetectionResult, sourcePath string, withImage bool) (*Artifacts, error) {
	artifacts := &Artifacts{}

	res, err := m.repo.SaveResult(ctx, result)
	if err != nil {
		return nil, apperrors.NewMaterializationError("failed to persist detection result", err)
	}
	artifacts.Result = res

	if !withImage {
		return artifacts, nil
	}

	data, err := m.annotator.Annotate(sourcePath, result.Detections)
	if err != nil {
		m.rollback(ctx, artifacts)
		if errors.Is(err, annotate.ErrUndecodableImage) {
			return nil, apperrors.NewClientInputError("uploaded image could not be decoded", err).
				WithStatus(http.StatusUnprocessableEntity)
		}
		return nil, apperrors.NewMaterializationError("failed to render annotated image", err)
	}

	img, err := m.repo.SaveImage(ctx, data)
	if err != nil {
		m.rollback(ctx, artifacts)
		return nil, apperrors.NewMaterializationError("failed to persist annotated image", err)
	}
	artifacts.Image = img

	return artifacts, nil
}

// rollback deletes what this call already wrote
func (m *artifactMaterializer) rollback(ctx context.Context, artifacts *Artifacts) {
	for _, a := range []*repository.Artifact{artifacts.Result, artifacts.Image} {
		if a == nil {
			continue
		}
		if err := m.repo.Delete(ctx, a); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"artifact": a.Name,
				"kind":     a.Kind,
			}).Warn("Failed to remove artifact after materialization failure")
		}
	}
}
