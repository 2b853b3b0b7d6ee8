// Package fake implements scripted landmark detectors for tests and demos.
package fake

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/services/landmarks"
)

// Mesh builds a synthetic face whose outer eye corners sit at left and right. With iris refinement
// the iris centers are placed on the corners as well, otherwise the mesh stops before them. Every
// other landmark sits on the midpoint between the eyes.
func Mesh(left, right landmarks.Landmark, withIris bool) landmarks.Landmarks {
	size := landmarks.MeshLandmarkCount
	if withIris {
		size = landmarks.RefinedLandmarkCount
	}
	center := landmarks.Landmark{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2, Z: (left.Z + right.Z) / 2}
	mesh := make(landmarks.Landmarks, size)
	for i := range mesh {
		mesh[i] = center
	}
	mesh[landmarks.LeftEyeCorner] = left
	mesh[landmarks.RightEyeCorner] = right
	if withIris {
		mesh[landmarks.LeftIrisCenter] = left
		mesh[landmarks.RightIrisCenter] = right
	}
	return mesh
}

// Detector replays a fixed script of detections, one per call, ignoring the image.
type Detector struct {
	mu     sync.Mutex
	script []landmarks.Landmarks
	loop   bool
	next   int
	closed bool
}

// NewScripted returns a detector that yields script in order. Past the end it either starts over
// or reports no face.
func NewScripted(loop bool, script ...landmarks.Landmarks) *Detector {
	return &Detector{script: script, loop: loop}
}

// NewSway returns a looping detector of a face drifting left and right across the middle of the
// frame over the given number of frames.
func NewSway(frames int, withIris bool) *Detector {
	if frames < 1 {
		frames = 1
	}
	const (
		amplitude = 0.15
		eyeSpan   = 0.1
	)
	script := make([]landmarks.Landmarks, 0, frames)
	for i := 0; i < frames; i++ {
		cx := 0.5 + amplitude*math.Sin(2*math.Pi*float64(i)/float64(frames))
		script = append(script, Mesh(
			landmarks.Landmark{X: cx - eyeSpan/2, Y: 0.45},
			landmarks.Landmark{X: cx + eyeSpan/2, Y: 0.45},
			withIris,
		))
	}
	return NewScripted(true, script...)
}

// Detect returns the next scripted detection.
func (d *Detector) Detect(ctx context.Context, img image.Image) (landmarks.Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("detector is closed")
	}
	if d.next >= len(d.script) {
		if !d.loop || len(d.script) == 0 {
			return nil, nil
		}
		d.next = 0
	}
	found := d.script[d.next]
	d.next++
	return found, nil
}

// Close stops the detector.
func (d *Detector) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
