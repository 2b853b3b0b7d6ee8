// Package config holds the startup configuration of the tracker.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/components/camera/fake"
	"github.com/parallaxlab/headtrack/components/camera/replay"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/overlay"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/services/landmarks/sidecar"
	"github.com/parallaxlab/headtrack/tracking"
)

// Frame sources.
const (
	SourceFake   = "fake"
	SourceReplay = "replay"
)

// Landmark detectors.
const (
	DetectorFake    = "fake"
	DetectorSidecar = "sidecar"
)

// Config is everything needed to start a tracker.
type Config struct {
	Source string
	Fake   fake.Config
	Replay replay.Config

	Detector string
	// SwayFrames is the period of the fake detector's motion.
	SwayFrames int
	Sidecar    sidecar.Config

	Tracking tracking.Config
	Publish  publish.Config

	// Overlay renders a debug view, served by the status server.
	Overlay       bool
	OverlayConfig overlay.Config

	// StatusAddress is where the status server listens. Empty disables it.
	StatusAddress string

	LogLevel logging.Level
	// TraceFrames logs each frame and datagram at debug level without lowering LogLevel.
	TraceFrames bool
	// LogFile additionally writes JSON logs to a rotated file when set.
	LogFile string
}

// Default returns the configuration of a tracker on a synthetic camera and face, publishing to
// the default consumer.
func Default() Config {
	return Config{
		Source: SourceFake,
		Fake: fake.Config{
			Width:       camera.DefaultWidth,
			Height:      camera.DefaultHeight,
			FrameRate:   camera.DefaultFrameRate,
			DepthMeters: 1.0,
		},
		Replay: replay.Config{
			FrameRate: camera.DefaultFrameRate,
		},
		Detector:   DetectorFake,
		SwayFrames: 4 * camera.DefaultFrameRate,
		Sidecar: sidecar.Config{
			Timeout: 200 * time.Millisecond,
		},
		Tracking: tracking.Config{
			Alpha:                  tracking.DefaultAlpha,
			MaxConsecutiveFailures: tracking.DefaultMaxConsecutiveFailures,
			RetryInterval:          tracking.DefaultRetryInterval,
		},
		Publish: publish.Config{
			Address:      publish.DefaultAddress,
			Encoding:     publish.EncodingJSON,
			WriteTimeout: publish.DefaultWriteTimeout,
		},
		OverlayConfig: overlay.Config{
			JPEGQuality: overlay.DefaultJPEGQuality,
		},
		LogLevel: logging.INFO,
	}
}

// Validate checks the configuration, reporting every problem found, and fills defaults left unset.
func (c *Config) Validate() error {
	var err error
	switch c.Source {
	case SourceFake:
		err = multierr.Append(err, errors.Wrap(c.Fake.Validate(), "fake camera"))
	case SourceReplay:
		err = multierr.Append(err, errors.Wrap(c.Replay.Validate(), "replay"))
	default:
		err = multierr.Append(err, errors.Errorf("unknown frame source %q, expected %q or %q", c.Source, SourceFake, SourceReplay))
	}

	switch c.Detector {
	case DetectorFake:
		if c.SwayFrames <= 0 {
			err = multierr.Append(err, errors.Errorf("sway period must be positive, got %d frames", c.SwayFrames))
		}
	case DetectorSidecar:
		err = multierr.Append(err, errors.Wrap(c.Sidecar.Validate(), "sidecar"))
	default:
		err = multierr.Append(err, errors.Errorf("unknown detector %q, expected %q or %q", c.Detector, DetectorFake, DetectorSidecar))
	}

	if c.Tracking.Alpha != 0 {
		err = multierr.Append(err, tracking.CheckAlpha(c.Tracking.Alpha))
	}
	if c.Tracking.MaxConsecutiveFailures < 0 {
		err = multierr.Append(err, errors.Errorf("max consecutive failures cannot be negative, got %d",
			c.Tracking.MaxConsecutiveFailures))
	}
	if c.Tracking.RetryInterval < 0 {
		err = multierr.Append(err, errors.Errorf("retry interval cannot be negative, got %s", c.Tracking.RetryInterval))
	}
	err = multierr.Append(err, errors.Wrap(c.Publish.Validate(), "publish"))

	if c.Overlay && c.StatusAddress == "" {
		err = multierr.Append(err, errors.New("the overlay is only served by the status server, set a status address"))
	}
	return err
}
