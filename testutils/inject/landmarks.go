package inject

import (
	"context"
	"image"

	"github.com/parallaxlab/headtrack/services/landmarks"
)

// Detector is an injected landmark detector.
type Detector struct {
	landmarks.Detector
	DetectFunc func(ctx context.Context, img image.Image) (landmarks.Landmarks, error)
	CloseFunc  func(ctx context.Context) error
}

// Detect calls the injected Detect or the real version.
func (d *Detector) Detect(ctx context.Context, img image.Image) (landmarks.Landmarks, error) {
	if d.DetectFunc == nil {
		return d.Detector.Detect(ctx, img)
	}
	return d.DetectFunc(ctx, img)
}

// Close calls the injected Close or the real version.
func (d *Detector) Close(ctx context.Context) error {
	if d.CloseFunc == nil {
		if d.Detector == nil {
			return nil
		}
		return d.Detector.Close(ctx)
	}
	return d.CloseFunc(ctx)
}
