// Package main listens for head positions sent by headtrack and reports what arrives: decoded
// positions at debug level and, periodically, the rate and jitter of the stream.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
)

const (
	// Flags.
	flagListen   = "listen"
	flagEncoding = "encoding"
	flagCount    = "count"
	flagInterval = "interval"
	flagDebug    = "debug"
)

func main() {
	app := &cli.App{
		Name:  "headtrack-listen",
		Usage: "receive and inspect head positions sent by headtrack",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagListen,
				Aliases: []string{"l"},
				Value:   publish.DefaultAddress,
				Usage:   "host:port to receive on",
			},
			&cli.StringFlag{
				Name:  flagEncoding,
				Value: string(publish.EncodingJSON),
				Usage: "payload encoding: json or binary",
			},
			&cli.IntFlag{
				Name:  flagCount,
				Usage: "stop after this many positions, 0 to run until interrupted",
			},
			&cli.DurationFlag{
				Name:  flagInterval,
				Value: 5 * time.Second,
				Usage: "how often to report stream statistics",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "log every position",
			},
		},
		Action: func(c *cli.Context) error {
			logger := logging.NewLogger("listen")
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			enc, err := publish.ParseEncoding(c.String(flagEncoding))
			if err != nil {
				return err
			}
			conn, err := net.ListenPacket("udp", c.String(flagListen))
			if err != nil {
				return errors.Wrapf(err, "cannot listen on %s", c.String(flagListen))
			}
			defer conn.Close()
			logger.Infow("listening for head positions", "address", conn.LocalAddr().String(), "encoding", enc)

			l := newListener(conn, enc, clock.New(), logger)
			return l.run(c.Context, c.Int(flagCount), c.Duration(flagInterval), func(s Summary) {
				logger.Infow("stream",
					"received", s.Received,
					"invalid", s.Invalid,
					"interval_mean_ms", s.MeanInterval*1000,
					"interval_std_ms", s.StdInterval*1000,
					"interval_p95_ms", s.P95Interval*1000,
					"jitter_x_mm", s.StdX*1000,
					"jitter_y_mm", s.StdY*1000,
					"jitter_z_mm", s.StdZ*1000,
					"age_ms", s.MeanAge*1000,
				)
			})
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "headtrack-listen:", err)
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}
