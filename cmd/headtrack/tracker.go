package main

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/components/camera/fake"
	"github.com/parallaxlab/headtrack/components/camera/replay"
	"github.com/parallaxlab/headtrack/config"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/metrics"
	"github.com/parallaxlab/headtrack/overlay"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/services/landmarks"
	fakedetector "github.com/parallaxlab/headtrack/services/landmarks/fake"
	"github.com/parallaxlab/headtrack/services/landmarks/sidecar"
	"github.com/parallaxlab/headtrack/tracking"
	"github.com/parallaxlab/headtrack/web"
)

// tracker is a loop wired to its collaborators, plus the optional status server.
type tracker struct {
	session  uuid.UUID
	loop     *tracking.Loop
	overlay  *overlay.Renderer
	registry *prometheus.Registry
	status   *web.Server
}

func newSource(conf config.Config, clk clock.Clock, logger logging.Logger) (camera.FrameSource, error) {
	switch conf.Source {
	case config.SourceFake:
		fakeConf := conf.Fake
		return fake.NewCamera(&fakeConf, clk, logger)
	case config.SourceReplay:
		replayConf := conf.Replay
		return replay.NewSource(&replayConf, clk, logger)
	}
	return nil, errors.Errorf("unknown frame source %q", conf.Source)
}

func newDetector(conf config.Config, logger logging.Logger) (landmarks.Detector, error) {
	switch conf.Detector {
	case config.DetectorFake:
		return fakedetector.NewSway(conf.SwayFrames, true), nil
	case config.DetectorSidecar:
		sidecarConf := conf.Sidecar
		return sidecar.NewClient(&sidecarConf, logger)
	}
	return nil, errors.Errorf("unknown detector %q", conf.Detector)
}

// newTracker builds every component. On failure, whatever was already opened is closed.
func newTracker(conf config.Config, clk clock.Clock, logger logging.Logger) (_ *tracker, err error) {
	t := &tracker{
		session:  uuid.New(),
		registry: prometheus.NewRegistry(),
	}
	t.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(t.registry)

	var closers []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		for _, closeFn := range closers {
			err = multierr.Append(err, closeFn(context.Background()))
		}
	}()

	source, err := newSource(conf, clk, logger.Sublogger("camera"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open frame source")
	}
	closers = append(closers, source.Close)

	detector, err := newDetector(conf, logger.Sublogger("landmarks"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot start landmark detector")
	}
	closers = append(closers, detector.Close)

	publisher, err := publish.NewUDPPublisher(conf.Publish, m, logger.Sublogger("publish"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open publisher")
	}
	closers = append(closers, publisher.Close)

	opts := []tracking.Option{tracking.WithClock(clk), tracking.WithMetrics(m)}
	if conf.Overlay {
		t.overlay = overlay.New(conf.OverlayConfig, logger.Sublogger("overlay"))
		opts = append(opts, tracking.WithVisualizer(t.overlay))
	}
	t.loop, err = tracking.NewLoop(source, detector, publisher, conf.Tracking, logger.Sublogger("tracking"), opts...)
	if err != nil {
		return nil, err
	}

	if conf.StatusAddress != "" {
		var snapshots web.SnapshotSource
		if t.overlay != nil {
			snapshots = t.overlay
		}
		t.status = web.NewServer(conf.StatusAddress, t.session, t.loop, snapshots, t.registry, logger.Sublogger("web"))
	}
	return t, nil
}

// run drives the loop and, if configured, the status server until ctx is done or the loop ends.
// The status server stops with the loop.
func (t *tracker) run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	statusCtx, stopStatus := context.WithCancel(groupCtx)
	defer stopStatus()

	group.Go(func() error {
		defer stopStatus()
		return t.loop.Run(groupCtx)
	})
	if t.status != nil {
		group.Go(func() error {
			return t.status.Run(statusCtx)
		})
	}
	return group.Wait()
}

func runTracker(ctx context.Context, conf config.Config, logger logging.Logger) error {
	t, err := newTracker(conf, clock.New(), logger)
	if err != nil {
		return err
	}
	logger.Infow("starting head tracker",
		"session", t.session.String(),
		"source", conf.Source,
		"detector", conf.Detector,
		"destination", conf.Publish.Address,
		"encoding", conf.Publish.Encoding,
		"alpha", conf.Tracking.Alpha,
	)
	if conf.TraceFrames {
		ctx = logging.EnableDebugMode(ctx, t.session.String()[:8])
	}
	return t.run(ctx)
}
