package proctor

import (
	"github.com/zaqqye/interview_backend_v1/internal/detection"
	"github.com/zaqqye/interview_backend_v1/internal/models"
)

// Classify turns raw detections into violation drafts. Pure function: the
// caller fills in SessionID/ImagePath and persists the batch.
//
// Only detections strictly above the policy threshold count. Person-label
// detections tally the person counter; prohibited-label detections each
// become an object_detected violation. If more than one person was seen a
// single multiple_persons violation carrying the count is appended last.
func Classify(dets []detection.Detection, policy detection.Policy) (violations []models.Violation, personCount int) {
	for _, d := range dets {
		if d.Confidence <= policy.ConfidenceThreshold {
			continue
		}
		if d.Label == policy.PersonLabel {
			personCount++
			continue
		}
		if policy.Prohibited(d.Label) {
			conf := d.Confidence
			violations = append(violations, models.Violation{
				ViolationType: models.ViolationObjectDetected,
				ObjectName:    d.Label,
				Confidence:    &conf,
			})
		}
	}

	if personCount > 1 {
		count := personCount
		violations = append(violations, models.Violation{
			ViolationType: models.ViolationMultiplePersons,
			ObjectName:    "multiple_persons",
			PersonCount:   &count,
		})
	}
	return violations, personCount
}
