package main

import (
	"context"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/components/camera/replay"
	"github.com/parallaxlab/headtrack/config"
	"github.com/parallaxlab/headtrack/logging"
)

// record saves up to frames frames of the configured source into dir in the replay layout.
func record(ctx context.Context, conf config.Config, dir string, frames int, logger logging.Logger) (err error) {
	if frames <= 0 {
		return errors.Errorf("number of frames must be positive, got %d", frames)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "cannot create recording directory %q", dir)
	}
	source, err := newSource(conf, clock.New(), logger.Sublogger("camera"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, source.Close(context.Background()))
	}()

	written := 0
	for written < frames && ctx.Err() == nil {
		frame, err := source.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil || camera.IsFatal(err) {
				break
			}
			logger.Warnw("skipping frame", "error", err)
			continue
		}
		if err := frame.Validate(); err != nil {
			logger.Warnw("skipping incomplete frame", "error", err)
			continue
		}
		if written == 0 {
			if err := replay.WriteIntrinsics(dir, frame.Model); err != nil {
				return errors.Wrap(err, "cannot write camera model")
			}
		}
		if err := replay.WriteFrame(dir, written, frame); err != nil {
			return err
		}
		written++
	}
	logger.Infow("recording saved", "dir", dir, "frames", written)
	if written == 0 {
		return errors.New("no frames were recorded")
	}
	return nil
}
