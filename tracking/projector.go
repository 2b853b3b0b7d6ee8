package tracking

import (
	"image"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/parallaxlab/headtrack/rimage/transform"
)

// MaxDepthMeters is the farthest depth accepted as a real head position. Anything beyond it, and
// anything at or below zero, is sensor noise or a missing return.
const MaxDepthMeters = 5.0

// DepthSampler reads depth in meters at a pixel. *rimage.DepthMap implements it.
type DepthSampler interface {
	MetersAt(p image.Point) float64
}

// DeprojectFunc maps a pixel and its depth to a camera-space point using a sensor model.
type DeprojectFunc func(model *transform.PinholeCameraModel, px, py, depth float64) r3.Vector

// DefaultDeproject uses the model's own deprojection, distortion included.
func DefaultDeproject(model *transform.PinholeCameraModel, px, py, depth float64) r3.Vector {
	return model.DeprojectPixelToPoint(px, py, depth)
}

// ValidDepth applies the depth gate: (0, MaxDepthMeters], boundary included.
func ValidDepth(depth float64) bool {
	return depth > 0 && depth <= MaxDepthMeters && !math.IsNaN(depth)
}

// Projector turns a reference pixel into a camera-space point.
type Projector struct {
	deproject DeprojectFunc
}

// NewProjector returns a Projector using deproject, or DefaultDeproject when nil.
func NewProjector(deproject DeprojectFunc) *Projector {
	if deproject == nil {
		deproject = DefaultDeproject
	}
	return &Projector{deproject: deproject}
}

// Project samples depth under ref.Center and deprojects it with the color sensor's model, which is
// the frame depth was aligned to. Out of range depth yields OutcomeInvalidDepth.
func (p *Projector) Project(
	ref Reference,
	depth DepthSampler,
	model *transform.PinholeCameraModel,
	capturedAt time.Time,
) Result {
	meters := depth.MetersAt(ref.Center)
	if !ValidDepth(meters) {
		res := NoDetection(OutcomeInvalidDepth, capturedAt)
		res.Reference = &ref
		res.DepthMeters = meters
		return res
	}
	return Result{
		Outcome: OutcomeValid,
		Point: CameraPoint{
			Position:   p.deproject(model, float64(ref.Center.X), float64(ref.Center.Y), meters),
			CapturedAt: capturedAt,
		},
		Reference:   &ref,
		DepthMeters: meters,
	}
}
