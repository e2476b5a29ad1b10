package repository

import (
	"context"

	"go-opening-detector/pkg/models"
)

// ArtifactKind distinguishes the two persisted outputs of a request
type ArtifactKind string

const (
	ArtifactResult ArtifactKind = "result"
	ArtifactImage  ArtifactKind = "image"
)

// Artifact describes one persisted file under the results root
type Artifact struct {
	Name     string
	Kind     ArtifactKind
	Size     int
	Mirrored bool
}

// ArtifactRepository defines the interface for persisting request outputs
type ArtifactRepository interface {
	// SaveResult stores the detection result as result_<id>.json
	SaveResult(ctx context.Context, result models.DetectionResult) (*Artifact, error)

	// SaveImage stores an annotated JPEG as detected_<id>.jpg
	SaveImage(ctx context.Context, data []byte) (*Artifact, error)

	// Delete removes an artifact and its mirror copy, if any
	Delete(ctx context.Context, artifact *Artifact) error
}
