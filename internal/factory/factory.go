package factory

import (
	"context"
	"fmt"

	"go-opening-detector/internal/config"
	"go-opening-detector/internal/detector"
	"go-opening-detector/internal/storage"
)

// DetectorType represents different ways of reaching the detection model
type DetectorType string

const (
	// HTTPDetector for an out-of-process inference server
	HTTPDetector DetectorType = "http"
)

// MirrorType represents different artifact mirror backends
type MirrorType string

const (
	// NoMirror keeps artifacts on local disk only
	NoMirror MirrorType = "none"
	// AzureMirror for Azure blob storage
	AzureMirror MirrorType = "azure"
	// S3Mirror for Amazon S3 and compatible stores
	S3Mirror MirrorType = "s3"
)

// DetectorFactory creates detectors
type DetectorFactory interface {
	CreateDetector(detectorType DetectorType) (detector.Detector, error)
}

// MirrorFactory creates artifact mirrors
type MirrorFactory interface {
	// CreateMirror returns a nil Mirror for NoMirror
	CreateMirror(ctx context.Context, mirrorType MirrorType) (storage.Mirror, error)
}

// detectorFactory implements DetectorFactory
type detectorFactory struct {
	cfg *config.Config
}

// NewDetectorFactory creates a new detector factory
func NewDetectorFactory(cfg *config.Config) DetectorFactory {
	return &detectorFactory{cfg: cfg}
}

// CreateDetector creates a detector wrapped in a worker pool sized by
// INFERENCE_WORKERS
func (f *detectorFactory) CreateDetector(detectorType DetectorType) (detector.Detector, error) {
	switch detectorType {
	case HTTPDetector:
		inner := detector.NewHTTPDetector(detector.HTTPDetectorOptions{
			URL:       f.cfg.InferenceURL,
			ModelPath: f.cfg.ModelPath,
			Timeout:   f.cfg.InferenceTimeout,
		})
		return detector.NewPooledDetector(inner, f.cfg.InferenceWorkers), nil
	default:
		return nil, fmt.Errorf("unsupported detector type: %s", detectorType)
	}
}

// mirrorFactory implements MirrorFactory
type mirrorFactory struct {
	cfg config.MirrorConfig
}

// NewMirrorFactory creates a new mirror factory
func NewMirrorFactory(cfg config.MirrorConfig) MirrorFactory {
	return &mirrorFactory{cfg: cfg}
}

// CreateMirror creates a mirror based on the specified type
func (f *mirrorFactory) CreateMirror(ctx context.Context, mirrorType MirrorType) (storage.Mirror, error) {
	switch mirrorType {
	case NoMirror, "":
		return nil, nil
	case AzureMirror:
		return storage.NewAzureMirror(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer)
	case S3Mirror:
		return storage.NewS3Mirror(ctx, storage.S3Options{
			Endpoint:        f.cfg.S3Endpoint,
			Region:          f.cfg.S3Region,
			Bucket:          f.cfg.S3Bucket,
			AccessKeyID:     f.cfg.S3AccessKeyID,
			SecretAccessKey: f.cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", mirrorType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	DetectorFactory DetectorFactory
	MirrorFactory   MirrorFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		DetectorFactory: NewDetectorFactory(cfg),
		MirrorFactory:   NewMirrorFactory(cfg.Mirror),
	}
}
