// Package camera defines a source of aligned color and depth frames.
package camera

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/rimage/transform"
)

// Capture settings of the depth camera. Depth is aligned to the color stream.
const (
	DefaultWidth     = 640
	DefaultHeight    = 480
	DefaultFrameRate = 30
)

var (
	// ErrFrameUnavailable is a transient failure to produce a single frame. The next call may succeed.
	ErrFrameUnavailable = errors.New("frame unavailable")
	// ErrSourceClosed is returned once a source has been closed or its device is gone.
	ErrSourceClosed = errors.New("frame source closed")
	// ErrSourceExhausted is returned by finite sources with no frames left.
	ErrSourceExhausted = errors.New("frame source exhausted")
)

// NewFrameUnavailableError wraps ErrFrameUnavailable with the reason.
func NewFrameUnavailableError(reason error) error {
	return errors.Wrap(ErrFrameUnavailable, reason.Error())
}

// IsFatal reports whether err means the source can never produce another frame.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceClosed) || errors.Is(err, ErrSourceExhausted)
}

// Frame is a color image and depth map of the same viewpoint and resolution, together with the
// model of the color sensor the depth was aligned to.
type Frame struct {
	Color      image.Image
	Depth      *rimage.DepthMap
	Model      *transform.PinholeCameraModel
	CapturedAt time.Time
}

// Width of the frame in pixels.
func (f Frame) Width() int {
	return f.Color.Bounds().Dx()
}

// Height of the frame in pixels.
func (f Frame) Height() int {
	return f.Color.Bounds().Dy()
}

// Validate checks the frame is complete and that color, depth and intrinsics agree on size.
func (f Frame) Validate() error {
	if f.Color == nil {
		return errors.New("frame has no color image")
	}
	if f.Depth == nil {
		return errors.New("frame has no depth map")
	}
	if err := f.Model.CheckValid(); err != nil {
		return err
	}
	w, h := f.Width(), f.Height()
	if f.Depth.Width() != w || f.Depth.Height() != h {
		return errors.Errorf("depth map and color dimensions don't match Depth(%d,%d) != Color(%d,%d)",
			f.Depth.Width(), f.Depth.Height(), w, h)
	}
	if f.Model.Width != w || f.Model.Height != h {
		return errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			w, h, f.Model.Width, f.Model.Height)
	}
	return nil
}

// A FrameSource produces aligned frames, blocking until the next one is available.
type FrameSource interface {
	// Acquire returns the next frame. Errors wrapping ErrFrameUnavailable are transient; errors
	// wrapping ErrSourceClosed or ErrSourceExhausted are final.
	Acquire(ctx context.Context) (Frame, error)
	// Close releases the device.
	Close(ctx context.Context) error
}

// FrameInterval is the time between frames at the given rate.
func FrameInterval(frameRate int) time.Duration {
	if frameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(frameRate)
}

// Pacer spaces acquisitions at a fixed interval measured on a clock.
type Pacer struct {
	clock    clock.Clock
	interval time.Duration
	next     time.Time
}

// NewPacer returns a Pacer for the given frame rate. A rate of zero never waits.
func NewPacer(clk clock.Clock, frameRate int) *Pacer {
	return &Pacer{clock: clk, interval: FrameInterval(frameRate)}
}

// Wait blocks until the next frame is due or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval == 0 {
		return ctx.Err()
	}
	now := p.clock.Now()
	if p.next.IsZero() {
		p.next = now
	}
	if wait := p.next.Sub(now); wait > 0 {
		timer := p.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		now = p.next
	}
	// a slow consumer does not get a burst of frames to catch up
	if p.next.Before(now) {
		p.next = now
	}
	p.next = p.next.Add(p.interval)
	return nil
}
