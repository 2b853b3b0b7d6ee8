package inject

import (
	"context"

	"github.com/parallaxlab/headtrack/components/camera"
)

// FrameSource is an injected frame source.
type FrameSource struct {
	camera.FrameSource
	AcquireFunc func(ctx context.Context) (camera.Frame, error)
	CloseFunc   func(ctx context.Context) error
}

// Acquire calls the injected Acquire or the real version.
func (s *FrameSource) Acquire(ctx context.Context) (camera.Frame, error) {
	if s.AcquireFunc == nil {
		return s.FrameSource.Acquire(ctx)
	}
	return s.AcquireFunc(ctx)
}

// Close calls the injected Close or the real version.
func (s *FrameSource) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		if s.FrameSource == nil {
			return nil
		}
		return s.FrameSource.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
