// Package overlay draws a debug view of tracked frames: the eye points, the point between them and
// the smoothed position, or a banner while no face is tracked.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/tracking"
)

// Drawing parameters.
const (
	EyeRadius    = 3
	CenterRadius = 4
	FontSize     = 18

	DefaultJPEGQuality = 80

	// NoFaceMessage is drawn while no face is found.
	NoFaceMessage = "Face not detected - Waiting..."
)

// Yellow is the color of the position label.
var Yellow = color.NRGBA{R: 255, G: 255, A: 255}

// Config tunes the overlay.
type Config struct {
	// Mirror flips the view horizontally, as a selfie preview would.
	Mirror bool
	// JPEGQuality of snapshots, DefaultJPEGQuality when zero.
	JPEGQuality int
}

// Renderer draws each frame it is given and keeps the latest drawing as a JPEG snapshot.
type Renderer struct {
	mirror  bool
	quality int
	logger  logging.Logger

	mu       sync.Mutex
	snapshot []byte
	frames   uint64
}

// New returns a Renderer.
func New(conf Config, logger logging.Logger) *Renderer {
	quality := conf.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Renderer{mirror: conf.Mirror, quality: quality, logger: logger}
}

// Render draws res over the frame and stores the result as the latest snapshot. A mirrored view
// flips the frame before drawing so that the text reads normally.
func (r *Renderer) Render(frame camera.Frame, res tracking.Result) {
	base := frame.Color
	if r.mirror {
		base = imaging.FlipH(base)
		res = Mirror(res, base.Bounds().Dx())
	}
	img := Draw(base, res)
	data, err := rimage.EncodeJPEG(img, r.quality)
	if err != nil {
		r.logger.Warnw("cannot encode overlay", "error", err)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = data
	r.frames++
}

// Snapshot returns the latest JPEG and how many frames have been rendered. It is nil until the
// first frame is rendered.
func (r *Renderer) Snapshot() ([]byte, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot, r.frames
}

// Draw returns a copy of img annotated with res. Frames where the depth check failed show the bare
// image; frames with no face show a banner.
func Draw(img image.Image, res tracking.Result) image.Image {
	dc := gg.NewContextForImage(img)
	switch {
	case res.Outcome == tracking.OutcomeNoFace:
		rimage.DrawString(dc, NoFaceMessage, image.Point{10, 30}, rimage.Red, FontSize)
	case res.IsValid() && res.Reference != nil:
		ref := res.Reference
		rimage.DrawFilledCircle(dc, ref.Left, EyeRadius, rimage.Green)
		rimage.DrawFilledCircle(dc, ref.Right, EyeRadius, rimage.Green)
		rimage.DrawFilledCircle(dc, ref.Center, CenterRadius, rimage.Red)
		rimage.DrawString(dc, PositionLabel(res.Point), LabelOrigin(ref.Center), Yellow, FontSize)
	}
	return dc.Image()
}

// Mirror returns res with its reference pixels reflected across the vertical center line of an
// image width pixels wide. res itself is left untouched.
func Mirror(res tracking.Result, width int) tracking.Result {
	if res.Reference == nil {
		return res
	}
	flip := func(p image.Point) image.Point {
		return image.Point{X: width - 1 - p.X, Y: p.Y}
	}
	ref := *res.Reference
	ref.Left, ref.Right, ref.Center = flip(ref.Left), flip(ref.Right), flip(ref.Center)
	res.Reference = &ref
	return res
}

// PositionLabel formats a position in meters to two decimals.
func PositionLabel(pt tracking.CameraPoint) string {
	return fmt.Sprintf("XYZ(m): %.2f, %.2f, %.2f", pt.Position.X, pt.Position.Y, pt.Position.Z)
}

// LabelOrigin places the label above and to the left of the center, kept on screen.
func LabelOrigin(center image.Point) image.Point {
	return image.Point{X: max(0, center.X-120), Y: max(20, center.Y-10)}
}
