// Package fake implements a fake depth camera which always returns the same gradient image over a
// flat wall at a user specified distance.
package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/rimage/transform"
)

const (
	initialWidth  = camera.DefaultWidth
	initialHeight = camera.DefaultHeight

	// DefaultDepthMeters is the distance of the fake wall.
	DefaultDepthMeters = 0.6
)

// Config are the attributes of the fake camera.
type Config struct {
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	FrameRate   int     `json:"frame_rate,omitempty"`
	DepthMeters float64 `json:"depth_meters,omitempty"`
}

// Validate checks that the config attributes are valid for a fake camera.
func (conf *Config) Validate() error {
	if conf.Height%2 != 0 {
		return errors.Errorf("odd-number resolutions cannot be rendered, cannot use a height of %d", conf.Height)
	}
	if conf.Width%2 != 0 {
		return errors.Errorf("odd-number resolutions cannot be rendered, cannot use a width of %d", conf.Width)
	}
	if conf.FrameRate < 0 {
		return errors.Errorf("frame rate cannot be negative, got %d", conf.FrameRate)
	}
	if conf.DepthMeters < 0 || conf.DepthMeters*rimage.UnitsPerMeter > float64(rimage.MaxDepth) {
		return errors.Errorf("depth of %v meters cannot be represented", conf.DepthMeters)
	}
	return nil
}

// Color stream intrinsics of a typical structured light depth camera at 640x480.
var fakeIntrinsics = &transform.PinholeCameraIntrinsics{
	Width:  initialWidth,
	Height: initialHeight,
	Fx:     615.37,
	Fy:     615.62,
	Ppx:    320.93,
	Ppy:    238.47,
}

func fakeModel(width, height int) (*transform.PinholeCameraModel, int, int) {
	var widthRatio, heightRatio float64
	switch {
	case width > 0 && height > 0:
		widthRatio = float64(width) / float64(initialWidth)
		heightRatio = float64(height) / float64(initialHeight)
	case width > 0 && height <= 0:
		widthRatio = float64(width) / float64(initialWidth)
		heightRatio = widthRatio
		height = int(float64(initialHeight) * widthRatio)
		if height%2 != 0 {
			height++
		}
	case width <= 0 && height > 0:
		heightRatio = float64(height) / float64(initialHeight)
		widthRatio = heightRatio
		width = int(float64(initialWidth) * heightRatio)
		if width%2 != 0 {
			width++
		}
	default:
		return &transform.PinholeCameraModel{PinholeCameraIntrinsics: fakeIntrinsics}, initialWidth, initialHeight
	}
	intrinsics := &transform.PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     fakeIntrinsics.Fx * widthRatio,
		Fy:     fakeIntrinsics.Fy * heightRatio,
		Ppx:    fakeIntrinsics.Ppx * widthRatio,
		Ppy:    fakeIntrinsics.Ppy * heightRatio,
	}
	return &transform.PinholeCameraModel{PinholeCameraIntrinsics: intrinsics}, width, height
}

// Camera is a fake camera that always returns the same frame, stamped with the current time.
type Camera struct {
	Model  *transform.PinholeCameraModel
	Width  int
	Height int

	clock  clock.Clock
	pacer  *camera.Pacer
	color  image.Image
	depth  *rimage.DepthMap
	closed atomic.Bool
	logger logging.Logger
}

// NewCamera returns a new fake camera.
func NewCamera(conf *Config, clk clock.Clock, logger logging.Logger) (*Camera, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	model, width, height := fakeModel(conf.Width, conf.Height)
	depthMeters := conf.DepthMeters
	if depthMeters == 0 {
		depthMeters = DefaultDepthMeters
	}
	cam := &Camera{
		Model:  model,
		Width:  width,
		Height: height,
		clock:  clk,
		pacer:  camera.NewPacer(clk, conf.FrameRate),
		color:  gradient(width, height),
		depth:  rimage.NewConstantDepthMap(width, height, rimage.Depth(math.Round(depthMeters*rimage.UnitsPerMeter))),
		logger: logger,
	}
	logger.Infow("fake camera ready", "width", width, "height", height, "depth_m", depthMeters)
	return cam, nil
}

// gradient draws a yellow to blue gradient.
func gradient(w, h int) image.Image {
	width := float64(w)
	height := float64(h)
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	totalDist := math.Hypot(width, height)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			dist := math.Hypot(float64(x), float64(y)) / totalDist
			img.Set(x, y, color.RGBA{uint8(255 - (255 * dist)), uint8(255 - (255 * dist)), uint8(0 + (255 * dist)), 255})
		}
	}
	return img
}

// Acquire returns the same frame at the configured rate.
func (c *Camera) Acquire(ctx context.Context) (camera.Frame, error) {
	if c.closed.Load() {
		return camera.Frame{}, camera.ErrSourceClosed
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return camera.Frame{}, err
	}
	return camera.Frame{
		Color:      c.color,
		Depth:      c.depth,
		Model:      c.Model,
		CapturedAt: c.clock.Now(),
	}, nil
}

// Close marks the camera closed.
func (c *Camera) Close(ctx context.Context) error {
	c.closed.Store(true)
	return nil
}
