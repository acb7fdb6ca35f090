// Package detection is the boundary to the external object/person
// recognizer. The pipeline treats it as a black box: one image in, a set
// of labelled detections out.
package detection

import (
	"context"
	"image"
)

// Detection is a single recognized object in a frame.
type Detection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// Detector analyzes a video frame and returns detected objects.
// Implementations must be safe for concurrent use.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Policy decides which detections count as integrity violations.
type Policy struct {
	PersonLabel         string
	ProhibitedLabels    []string
	ConfidenceThreshold float64
}

// DefaultPolicy mirrors the production proctoring rules: strictly more
// than 0.5 confidence, the COCO person class, and the usual cheating aids.
func DefaultPolicy() Policy {
	return Policy{
		PersonLabel:         "person",
		ProhibitedLabels:    []string{"cell phone", "book", "laptop", "tablet"},
		ConfidenceThreshold: 0.5,
	}
}

// Prohibited reports whether label is in the prohibited set.
func (p Policy) Prohibited(label string) bool {
	for _, l := range p.ProhibitedLabels {
		if l == label {
			return true
		}
	}
	return false
}
