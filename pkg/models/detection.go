package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Detection is one predicted object instance.
// Field order is part of the persisted artifact format.
type Detection struct {
	BBox       [4]float64 `json:"bbox"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
}

// MarshalJSON writes floats the way the result files have always carried
// them: whole numbers keep a ".0" suffix, so a confidence of 1 is 1.0.
func (d Detection) MarshalJSON() ([]byte, error) {
	name, err := json.Marshal(d.ClassName)
	if err != nil {
		return nil, err
	}

	buf := []byte(`{"bbox":[`)
	for i, v := range d.BBox {
		if i > 0 {
			buf = append(buf, ',')
		}
		if buf, err = appendFloat(buf, v); err != nil {
			return nil, err
		}
	}
	buf = append(buf, `],"class_id":`...)
	buf = strconv.AppendInt(buf, int64(d.ClassID), 10)
	buf = append(buf, `,"class_name":`...)
	buf = append(buf, name...)
	buf = append(buf, `,"confidence":`...)
	if buf, err = appendFloat(buf, d.Confidence); err != nil {
		return nil, err
	}
	return append(buf, '}'), nil
}

// appendFloat uses the shortest representation that round-trips. Magnitudes
// below 1e-4 or from 1e16 up switch to exponent form.
func appendFloat(buf []byte, v float64) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}

	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.AppendFloat(buf, v, 'e', -1, 64), nil
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return append(buf, s...), nil
}

// DetectionResult is the document persisted as a JSON artifact
type DetectionResult struct {
	Detections []Detection `json:"detections"`
}

// NewDetectionResult wraps detections, guaranteeing a non-nil slice so
// that an empty result serializes as [] rather than null.
func NewDetectionResult(detections []Detection) DetectionResult {
	if detections == nil {
		detections = []Detection{}
	}
	return DetectionResult{Detections: detections}
}
