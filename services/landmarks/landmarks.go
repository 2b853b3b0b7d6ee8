// Package landmarks defines a face landmark detector: given a color image it finds at most one
// face and returns its mesh of normalized landmark points.
package landmarks

import (
	"context"
	"image"
)

// Indices into a face mesh. The iris centers are only present when the model refines landmarks.
const (
	LeftEyeCorner   = 33
	RightEyeCorner  = 263
	LeftIrisCenter  = 468
	RightIrisCenter = 473
)

// Sizes of a face mesh.
const (
	// MeshLandmarkCount is the size of a mesh without iris refinement.
	MeshLandmarkCount = 468
	// IrisLandmarkCount is the smallest mesh that contains both iris centers.
	IrisLandmarkCount = RightIrisCenter + 1
	// RefinedLandmarkCount is the size of a mesh with iris refinement.
	RefinedLandmarkCount = 478
)

// Landmark is a point on the face in image-relative coordinates: X and Y are in [0,1] for points
// inside the frame but can fall outside near the edges. Z is relative depth from the model.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Landmarks is the ordered mesh of one face. Nil or empty means no face was found.
type Landmarks []Landmark

// Found reports whether a face was detected.
func (l Landmarks) Found() bool {
	return len(l) > 0
}

// Has reports whether the mesh contains the given index.
func (l Landmarks) Has(index int) bool {
	return index >= 0 && index < len(l)
}

// HasIris reports whether the mesh carries iris refinement.
func (l Landmarks) HasIris() bool {
	return len(l) >= IrisLandmarkCount
}

// A Detector finds face landmarks in an image.
type Detector interface {
	// Detect returns the landmarks of the most prominent face, or nil if there is none.
	Detect(ctx context.Context, img image.Image) (Landmarks, error)
	// Close releases the model.
	Close(ctx context.Context) error
}
