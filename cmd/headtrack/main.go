// Package main runs the head tracker: it reads aligned color and depth frames, finds the point
// between the viewer's eyes, and streams its smoothed 3D position over UDP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/parallaxlab/headtrack/config"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
)

const (
	// Flags.
	flagSource       = "source"
	flagReplayDir    = "replay-dir"
	flagLoop         = "loop"
	flagFrameRate    = "fps"
	flagDepth        = "fake-depth"
	flagDetector     = "detector"
	flagSidecarURL   = "sidecar-url"
	flagSidecarWait  = "sidecar-timeout"
	flagAlpha        = "alpha"
	flagMaxFailures  = "max-failures"
	flagDestination  = "dest"
	flagEncoding     = "encoding"
	flagStatusAddr   = "status-addr"
	flagOverlay      = "overlay"
	flagMirror       = "mirror"
	flagLogLevel     = "log-level"
	flagLogFile      = "log-file"
	flagDebug        = "debug"
	flagRecordFrames = "frames"
	flagRecordOut    = "out"
)

func main() {
	defaults := config.Default()
	app := &cli.App{
		Name:  "headtrack",
		Usage: "track the viewer's head with a depth camera and stream its position over UDP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagSource,
				Value: defaults.Source,
				Usage: "frame source: fake or replay",
			},
			&cli.StringFlag{
				Name:  flagReplayDir,
				Usage: "recording to play back with --source=replay",
			},
			&cli.BoolFlag{
				Name:  flagLoop,
				Usage: "restart the recording when it ends",
			},
			&cli.IntFlag{
				Name:  flagFrameRate,
				Value: defaults.Fake.FrameRate,
				Usage: "frames per second of the fake or replayed source",
			},
			&cli.Float64Flag{
				Name:  flagDepth,
				Value: defaults.Fake.DepthMeters,
				Usage: "distance in meters of the fake camera's scene",
			},
			&cli.StringFlag{
				Name:  flagDetector,
				Value: defaults.Detector,
				Usage: "landmark detector: fake or sidecar",
			},
			&cli.StringFlag{
				Name:  flagSidecarURL,
				Usage: "face mesh service endpoint for --detector=sidecar",
			},
			&cli.DurationFlag{
				Name:  flagSidecarWait,
				Value: defaults.Sidecar.Timeout,
				Usage: "timeout of one sidecar detection",
			},
			&cli.Float64Flag{
				Name:  flagAlpha,
				Value: defaults.Tracking.Alpha,
				Usage: "smoothing factor in (0, 1], higher follows faster with more jitter",
			},
			&cli.IntFlag{
				Name:  flagMaxFailures,
				Value: defaults.Tracking.MaxConsecutiveFailures,
				Usage: "consecutive frame failures before giving up",
			},
			&cli.StringFlag{
				Name:    flagDestination,
				Aliases: []string{"d"},
				Value:   defaults.Publish.Address,
				Usage:   "host:port to send positions to",
			},
			&cli.StringFlag{
				Name:  flagEncoding,
				Value: string(defaults.Publish.Encoding),
				Usage: "payload encoding: json or binary",
			},
			&cli.StringFlag{
				Name:  flagStatusAddr,
				Usage: "serve health, state and metrics on this address",
			},
			&cli.BoolFlag{
				Name:  flagOverlay,
				Usage: "render a debug overlay, served at /overlay.jpg",
			},
			&cli.BoolFlag{
				Name:  flagMirror,
				Usage: "mirror the overlay horizontally",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Value: defaults.LogLevel.String(),
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to this rotated `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "log every processed frame and sent datagram, whatever the log level",
			},
		},
		Action: func(c *cli.Context) error {
			conf, err := configFromFlags(c)
			if err != nil {
				return err
			}
			logger, closeLogs := newLogger(conf)
			defer closeLogs()
			return runTracker(c.Context, conf, logger)
		},
		Commands: []*cli.Command{
			{
				Name:  "record",
				Usage: "save frames from the configured source for later replay",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  flagRecordFrames,
						Value: 90,
						Usage: "number of frames to record",
					},
					&cli.StringFlag{
						Name:     flagRecordOut,
						Required: true,
						Usage:    "directory to write the recording to",
					},
				},
				Action: func(c *cli.Context) error {
					conf, err := configFromFlags(c)
					if err != nil {
						return err
					}
					logger, closeLogs := newLogger(conf)
					defer closeLogs()
					return record(c.Context, conf, c.String(flagRecordOut), c.Int(flagRecordFrames), logger)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "headtrack:", err)
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}

// configFromFlags builds and validates the config from global flags.
func configFromFlags(c *cli.Context) (config.Config, error) {
	conf := config.Default()
	conf.Source = c.String(flagSource)
	conf.Replay.Dir = c.String(flagReplayDir)
	conf.Replay.Loop = c.Bool(flagLoop)
	conf.Replay.FrameRate = c.Int(flagFrameRate)
	conf.Fake.FrameRate = c.Int(flagFrameRate)
	conf.Fake.DepthMeters = c.Float64(flagDepth)
	conf.SwayFrames = 4 * max(1, c.Int(flagFrameRate))

	conf.Detector = c.String(flagDetector)
	conf.Sidecar.URL = c.String(flagSidecarURL)
	conf.Sidecar.Timeout = c.Duration(flagSidecarWait)

	conf.Tracking.Alpha = c.Float64(flagAlpha)
	conf.Tracking.MaxConsecutiveFailures = c.Int(flagMaxFailures)
	conf.Publish.Address = c.String(flagDestination)
	conf.Publish.Encoding = publish.Encoding(c.String(flagEncoding))

	conf.StatusAddress = c.String(flagStatusAddr)
	conf.Overlay = c.Bool(flagOverlay)
	conf.OverlayConfig.Mirror = c.Bool(flagMirror)

	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return config.Config{}, err
	}
	conf.LogLevel = level
	conf.TraceFrames = c.Bool(flagDebug)
	conf.LogFile = c.String(flagLogFile)

	if err := conf.Validate(); err != nil {
		return config.Config{}, err
	}
	return conf, nil
}

// newLogger returns the process logger and a func flushing and closing its outputs.
func newLogger(conf config.Config) (logging.Logger, func()) {
	logger := logging.NewLogger("headtrack")
	logger.SetLevel(conf.LogLevel)
	var file *logging.FileAppender
	if conf.LogFile != "" {
		file = logging.NewFileAppender(conf.LogFile, 10, 3)
		logger.AddAppender(file)
	}
	return logger, func() {
		//nolint:errcheck
		logger.Sync()
		if file != nil {
			//nolint:errcheck
			file.Close()
		}
	}
}
