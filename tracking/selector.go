package tracking

import (
	"image"
	"math"

	"github.com/parallaxlab/headtrack/services/landmarks"
)

// SelectReference picks the pixel between the eyes of a face in a width by height frame. Iris
// centers are used when the mesh has them, otherwise the outer eye corners. It returns false when
// there is no face, or the mesh is too short to hold the eye corners.
//
// Each eye pixel is clamped to the frame before the midpoint is taken and the midpoint is clamped
// again, so the result is always addressable in an aligned depth map.
func SelectReference(lm landmarks.Landmarks, width, height int) (Reference, bool) {
	if !lm.Found() || width <= 0 || height <= 0 {
		return Reference{}, false
	}

	leftIdx, rightIdx, source := landmarks.LeftIrisCenter, landmarks.RightIrisCenter, SourceIris
	if !lm.HasIris() {
		leftIdx, rightIdx, source = landmarks.LeftEyeCorner, landmarks.RightEyeCorner, SourceEyeCorners
	}
	if !lm.Has(leftIdx) || !lm.Has(rightIdx) {
		return Reference{}, false
	}

	left := toPixel(lm[leftIdx], width, height)
	right := toPixel(lm[rightIdx], width, height)
	center := clampPoint(image.Point{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}, width, height)
	return Reference{Left: left, Right: right, Center: center, Source: source}, true
}

// toPixel scales a normalized landmark to the frame, truncating toward zero, and clamps it.
func toPixel(l landmarks.Landmark, width, height int) image.Point {
	return image.Point{X: scaleClamp(l.X, width), Y: scaleClamp(l.Y, height)}
}

func scaleClamp(v float64, size int) int {
	scaled := v * float64(size)
	switch {
	case math.IsNaN(scaled), scaled < 0:
		return 0
	case scaled > float64(size-1):
		return size - 1
	default:
		return int(scaled)
	}
}

func clampPoint(p image.Point, width, height int) image.Point {
	return image.Point{X: clamp(p.X, 0, width-1), Y: clamp(p.Y, 0, height-1)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
