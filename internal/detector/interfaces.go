package detector

import (
	"context"
	"fmt"
)

// RawDetection is one box as reported by the model, before rounding or
// class-name lookup
type RawDetection struct {
	ClassID    int
	Box        [4]float64 // x_min, y_min, x_max, y_max in pixels
	Confidence float64
}

// Detector is the pretrained detection model. Implementations may not be
// safe for concurrent use; wrap them in a PooledDetector.
type Detector interface {
	// Detect runs inference on the image stored at imagePath
	Detect(ctx context.Context, imagePath string) ([]RawDetection, error)

	// Close releases any resources held by the detector
	Close() error
}

// HealthChecker is implemented by detectors that can probe their backend
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// ClassTable maps class ids (positions) to human-readable names
type ClassTable []string

// NewClassTable copies names into a table; it must not be empty
func NewClassTable(names []string) (ClassTable, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("class table must contain at least one class")
	}
	table := make(ClassTable, len(names))
	copy(table, names)
	return table, nil
}

// Name looks up a class id
func (t ClassTable) Name(id int) (string, error) {
	if id < 0 || id >= len(t) {
		return "", fmt.Errorf("class id %d outside class table of size %d", id, len(t))
	}
	return t[id], nil
}
