package detector

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	apperrors "go-opening-detector/internal/errors"
	"go-opening-detector/internal/logger"
	"go-opening-detector/pkg/models"
)

// Precision is the number of decimal places kept for coordinates and confidences
const Precision = 2

// Round rounds half away from zero on the value's shortest decimal
// representation, so 12.345 becomes 12.35 even though its binary value is
// slightly below the tie.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}

// Normalize converts raw model output into the persisted detection schema,
// preserving the model's order. A class id outside the table means the model
// and the configured class table disagree; that fails the whole request.
func Normalize(raw []RawDetection, classes ClassTable) ([]models.Detection, error) {
	detections := make([]models.Detection, 0, len(raw))

	for i, r := range raw {
		if !finite(r) {
			logger.WithFields(logrus.Fields{
				"detection_index": i,
				"box":             r.Box,
				"confidence":      r.Confidence,
			}).Error("Model reported a non-finite coordinate or confidence")
			return nil, apperrors.NewInferenceError("detection service returned a non-finite value", nil).
				WithDetails(fmt.Sprintf("detection %d", i))
		}

		name, err := classes.Name(r.ClassID)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"class_id":         r.ClassID,
				"class_table_size": len(classes),
				"detection_index":  i,
				"misconfiguration": true,
			}).Error("Model reported a class id unknown to the class table")
			return nil, apperrors.NewModelConsistencyError("model and class table are out of sync", err)
		}

		detections = append(detections, models.Detection{
			BBox: [4]float64{
				Round(r.Box[0]),
				Round(r.Box[1]),
				Round(r.Box[2]),
				Round(r.Box[3]),
			},
			ClassID:    r.ClassID,
			ClassName:  name,
			Confidence: Round(r.Confidence),
		})
	}

	return detections, nil
}

func finite(r RawDetection) bool {
	for _, v := range append(r.Box[:], r.Confidence) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
