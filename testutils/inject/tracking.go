package inject

import (
	"context"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/tracking"
)

// Publisher is an injected tracking publisher.
type Publisher struct {
	tracking.Publisher
	PublishFunc func(ctx context.Context, res tracking.Result) error
	CloseFunc   func(ctx context.Context) error
}

// Publish calls the injected Publish or the real version.
func (p *Publisher) Publish(ctx context.Context, res tracking.Result) error {
	if p.PublishFunc == nil {
		return p.Publisher.Publish(ctx, res)
	}
	return p.PublishFunc(ctx, res)
}

// Close calls the injected Close or the real version.
func (p *Publisher) Close(ctx context.Context) error {
	if p.CloseFunc == nil {
		if p.Publisher == nil {
			return nil
		}
		return p.Publisher.Close(ctx)
	}
	return p.CloseFunc(ctx)
}

// Visualizer is an injected frame visualizer.
type Visualizer struct {
	tracking.Visualizer
	RenderFunc func(frame camera.Frame, res tracking.Result)
}

// Render calls the injected Render or the real version.
func (v *Visualizer) Render(frame camera.Frame, res tracking.Result) {
	if v.RenderFunc == nil {
		v.Visualizer.Render(frame, res)
		return
	}
	v.RenderFunc(frame, res)
}
