package main

import (
	"context"
	"net"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
)

const (
	maxDatagramSize = 1024
	pollInterval    = 200 * time.Millisecond
)

// listener decodes head positions arriving on a UDP socket and reports stream statistics.
type listener struct {
	conn     net.PacketConn
	encoding publish.Encoding
	clock    clock.Clock
	logger   logging.Logger

	rejectLog rate.Sometimes
}

func newListener(conn net.PacketConn, enc publish.Encoding, clk clock.Clock, logger logging.Logger) *listener {
	return &listener{
		conn:      conn,
		encoding:  enc,
		clock:     clk,
		logger:    logger,
		rejectLog: rate.Sometimes{First: 5, Interval: 5 * time.Second},
	}
}

// run receives until ctx is done or limit positions have been accepted, a limit of zero meaning
// no limit. A summary is handed to report every interval, and once more for what is left at the end.
func (l *listener) run(ctx context.Context, limit int, interval time.Duration, report func(Summary)) error {
	var w window
	accepted := 0
	lastReport := l.clock.Now()
	buf := make([]byte, maxDatagramSize)
	defer func() {
		if len(w.arrivals) > 0 || w.invalid > 0 {
			report(w.summarize())
		}
	}()

	for ctx.Err() == nil && (limit == 0 || accepted < limit) {
		if err := l.conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			return errors.Wrap(err, "cannot set read deadline")
		}
		n, from, err := l.conn.ReadFrom(buf)
		now := l.clock.Now()
		if err != nil {
			var netErr net.Error
			if !errors.As(err, &netErr) || !netErr.Timeout() {
				return errors.Wrap(err, "receive failed")
			}
		} else {
			payload, err := publish.Decode(l.encoding, buf[:n])
			if err != nil {
				w.reject()
				l.rejectLog.Do(func() {
					l.logger.Warnw("rejected datagram", "from", from.String(), "bytes", n, "error", err)
				})
			} else {
				w.add(payload, now)
				accepted++
				l.logger.Debugw("position", "x", payload.X, "y", payload.Y, "z", payload.Z, "ts", payload.TS)
			}
		}
		if interval > 0 && now.Sub(lastReport) >= interval {
			report(w.summarize())
			lastReport = now
		}
	}
	return nil
}
