// Package tracking turns frames of an aligned depth camera into a smoothed 3D head position.
//
// Each frame runs a fixed pipeline: detect face landmarks, select the point between the eyes,
// sample its depth and deproject it into camera space, smooth it, then publish it. Everything but
// the smoothing state is discarded after the frame.
package tracking

import (
	"image"
	"time"

	"github.com/golang/geo/r3"
)

// Outcome classifies what a frame produced. Every outcome other than OutcomeValid is a
// no-detection frame.
type Outcome int

const (
	// OutcomeNoFace means the detector found no face.
	OutcomeNoFace Outcome = iota
	// OutcomeNoReference means a face was found but it lacks the landmarks used for the reference point.
	OutcomeNoReference
	// OutcomeInvalidDepth means the depth under the reference point is missing or out of range.
	OutcomeInvalidDepth
	// OutcomeValid means the frame produced a 3D point.
	OutcomeValid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoFace:
		return "no_face"
	case OutcomeNoReference:
		return "no_reference"
	case OutcomeInvalidDepth:
		return "invalid_depth"
	case OutcomeValid:
		return "valid"
	}
	return "unknown"
}

// CameraPoint is a position in meters in the camera frame (x right, y down, z forward) together
// with the capture time of the frame it came from.
type CameraPoint struct {
	Position   r3.Vector
	CapturedAt time.Time
}

// Result is the output of one frame. Point is set only when Outcome is OutcomeValid.
type Result struct {
	Outcome Outcome
	Point   CameraPoint

	// Reference is the selected eye geometry, nil when none was selected.
	Reference *Reference
	// DepthMeters is the depth sampled under the reference point.
	DepthMeters float64
}

// IsValid reports whether the frame produced a point.
func (r Result) IsValid() bool {
	return r.Outcome == OutcomeValid
}

// NoDetection returns a result for a frame that produced no point.
func NoDetection(outcome Outcome, capturedAt time.Time) Result {
	return Result{Outcome: outcome, Point: CameraPoint{CapturedAt: capturedAt}}
}

// Reference is the pixel depth is sampled at, along with the eye pixels it was derived from.
type Reference struct {
	Left   image.Point
	Right  image.Point
	Center image.Point
	Source ReferenceSource
}

// ReferenceSource names the landmarks a reference came from.
type ReferenceSource int

const (
	// SourceIris uses the iris centers of a refined mesh.
	SourceIris ReferenceSource = iota
	// SourceEyeCorners uses the outer eye corners.
	SourceEyeCorners
)

func (s ReferenceSource) String() string {
	if s == SourceIris {
		return "iris"
	}
	return "eye_corners"
}
