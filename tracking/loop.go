package tracking

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/time/rate"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/metrics"
	"github.com/parallaxlab/headtrack/services/landmarks"
)

// Loop defaults.
const (
	DefaultMaxConsecutiveFailures = 30
	DefaultRetryInterval          = 100 * time.Millisecond

	closeTimeout = 5 * time.Second
	logInterval  = 5 * time.Second
)

// State is the lifecycle state of a Loop.
type State int32

const (
	// StateIdle is a loop that has not been run.
	StateIdle State = iota
	// StateRunning is processing frames.
	StateRunning
	// StateStopping is releasing resources.
	StateStopping
	// StateStopped is done; a loop cannot be restarted.
	StateStopped
)

var allStates = []string{"idle", "running", "stopping", "stopped"}

func (s State) String() string {
	if s >= 0 && int(s) < len(allStates) {
		return allStates[s]
	}
	return "unknown"
}

// A Publisher emits the result of every frame. It decides what, if anything, to send for
// no-detection frames. Publish must not block the loop for long.
type Publisher interface {
	Publish(ctx context.Context, res Result) error
	Close(ctx context.Context) error
}

// A Visualizer renders a debug view of a processed frame. It is called on the loop goroutine.
type Visualizer interface {
	Render(frame camera.Frame, res Result)
}

// Config tunes the loop.
type Config struct {
	// Alpha is the smoothing factor, DefaultAlpha when zero.
	Alpha float64
	// MaxConsecutiveFailures of frame acquisition stop the loop, DefaultMaxConsecutiveFailures when zero.
	MaxConsecutiveFailures int
	// RetryInterval is the pause after a failed acquisition, DefaultRetryInterval when zero.
	RetryInterval time.Duration
	// Deproject overrides the sensor deprojection.
	Deproject DeprojectFunc
}

// Option configures optional collaborators of a Loop.
type Option func(*Loop)

// WithVisualizer renders every frame with v.
func WithVisualizer(v Visualizer) Option {
	return func(l *Loop) {
		l.visualizer = v
	}
}

// WithClock sets the clock used for timing frames.
func WithClock(clk clock.Clock) Option {
	return func(l *Loop) {
		l.clock = clk
	}
}

// WithMetrics records loop activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) {
		l.metrics = m
	}
}

// Loop runs the tracking pipeline one frame at a time on a single goroutine. It owns the frame
// source, detector, publisher and smoothing state for its lifetime and releases them when Run
// returns.
type Loop struct {
	source     camera.FrameSource
	detector   landmarks.Detector
	publisher  Publisher
	visualizer Visualizer
	projector  *Projector
	smoother   *Smoother

	maxFailures   int
	retryInterval time.Duration

	clock   clock.Clock
	metrics *metrics.Metrics
	logger  logging.Logger

	acquireLog rate.Sometimes
	detectLog  rate.Sometimes
	publishLog rate.Sometimes

	state  atomic.Int32
	frames atomic.Uint64

	mu           sync.Mutex
	last         Result
	lastPosition CameraPoint
	hasPosition  bool
}

// NewLoop wires a loop over its collaborators.
func NewLoop(
	source camera.FrameSource,
	detector landmarks.Detector,
	publisher Publisher,
	conf Config,
	logger logging.Logger,
	opts ...Option,
) (*Loop, error) {
	if source == nil || detector == nil || publisher == nil {
		return nil, errors.New("tracking loop requires a frame source, detector and publisher")
	}
	alpha := conf.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	smoother, err := NewSmoother(alpha)
	if err != nil {
		return nil, err
	}
	if alpha < RecommendedMinAlpha || alpha > RecommendedMaxAlpha {
		logger.Warnw("smoothing factor outside the recommended range", "alpha", alpha,
			"min", RecommendedMinAlpha, "max", RecommendedMaxAlpha)
	}
	maxFailures := conf.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	retryInterval := conf.RetryInterval
	if retryInterval == 0 {
		retryInterval = DefaultRetryInterval
	}

	l := &Loop{
		source:        source,
		detector:      detector,
		publisher:     publisher,
		projector:     NewProjector(conf.Deproject),
		smoother:      smoother,
		maxFailures:   maxFailures,
		retryInterval: retryInterval,
		clock:         clock.New(),
		logger:        logger,
		acquireLog:    rate.Sometimes{First: 3, Interval: logInterval},
		detectLog:     rate.Sometimes{First: 3, Interval: logInterval},
		publishLog:    rate.Sometimes{First: 3, Interval: logInterval},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.metrics.SetLoopState(StateIdle.String(), allStates)
	return l, nil
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Frames returns how many frames have been processed. Safe to call from any goroutine.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Last returns the result most recently handed to the publisher. Safe to call from any goroutine.
func (l *Loop) Last() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// LastPosition returns the most recent valid position handed to the publisher, which outlives any
// frames without a detection since. It reports false until the first one. Safe to call from any
// goroutine.
func (l *Loop) LastPosition() (CameraPoint, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPosition, l.hasPosition
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	l.metrics.SetLoopState(s.String(), allStates)
}

// Run processes frames until ctx is done or the frame source fails for good, then closes the
// source, detector and publisher. Cancellation is only observed between frames and while waiting
// for a frame. A nil error means the loop was asked to stop.
func (l *Loop) Run(ctx context.Context) (err error) {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return errors.Errorf("tracking loop cannot run from state %s", l.State())
	}
	l.metrics.SetLoopState(StateRunning.String(), allStates)
	l.logger.Infow("tracking loop running")

	defer func() {
		if r := recover(); r != nil {
			l.metrics.IncrementPanic()
			err = errors.Errorf("tracking loop panicked: %v", r)
		}
		l.setState(StateStopping)
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		err = multierr.Combine(err, l.close(closeCtx))
		l.setState(StateStopped)
		if err != nil {
			l.logger.Errorw("tracking loop stopped", "error", err, "frames", l.Frames())
		} else {
			l.logger.Infow("tracking loop stopped", "frames", l.Frames())
		}
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := l.acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if camera.IsFatal(err) {
				l.metrics.IncrementAcquireError(true)
				return errors.Wrap(err, "frame source failed")
			}
			failures++
			l.metrics.IncrementAcquireError(false)
			l.acquireLog.Do(func() {
				l.logger.Warnw("frame acquisition failed", "error", err, "consecutive", failures)
			})
			if failures >= l.maxFailures {
				return errors.Wrapf(err, "frame source failed %d consecutive times", failures)
			}
			if !utils.SelectContextOrWait(ctx, l.retryInterval) {
				return nil
			}
			continue
		}
		failures = 0

		l.processFrame(context.WithoutCancel(ctx), frame)
	}
}

// acquire reads and validates the next frame. A panicking source is treated as a transient failure.
func (l *Loop) acquire(ctx context.Context) (frame camera.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.IncrementPanic()
			err = camera.NewFrameUnavailableError(fmt.Errorf("frame source panicked: %v", r))
		}
	}()
	frame, err = l.source.Acquire(ctx)
	if err != nil {
		return camera.Frame{}, err
	}
	if err := frame.Validate(); err != nil {
		return camera.Frame{}, camera.NewFrameUnavailableError(err)
	}
	return frame, nil
}

// processFrame runs one frame through the pipeline. Failures and panics are contained here so a
// single bad frame never ends the loop.
func (l *Loop) processFrame(ctx context.Context, frame camera.Frame) {
	start := l.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			l.metrics.IncrementPanic()
			l.logger.Errorw("recovered panic while processing frame", "panic", r, "stack", string(debug.Stack()))
		}
		l.frames.Add(1)
		l.metrics.ObserveFrameLatency(l.clock.Since(start))
	}()

	res, err := l.track(ctx, frame)
	if err != nil {
		l.metrics.IncrementDetectError()
		l.detectLog.Do(func() {
			l.logger.Warnw("landmark detection failed, skipping frame", "error", err)
		})
		return
	}
	l.metrics.IncrementFrame(res.Outcome.String())
	l.logger.CDebugw(ctx, "frame processed", "outcome", res.Outcome, "depth_m", res.DepthMeters)

	out := l.smoother.Update(res)
	if out.IsValid() {
		l.metrics.SetPosition(out.Point.Position.X, out.Point.Position.Y, out.Point.Position.Z)
	}
	l.mu.Lock()
	l.last = out
	if out.IsValid() {
		l.lastPosition, l.hasPosition = out.Point, true
	}
	l.mu.Unlock()

	if err := l.publisher.Publish(ctx, out); err != nil {
		l.publishLog.Do(func() {
			l.logger.Warnw("publish failed", "error", err)
		})
	}
	if l.visualizer != nil {
		l.visualizer.Render(frame, out)
	}
}

// track detects, selects and projects without touching the smoothing state.
func (l *Loop) track(ctx context.Context, frame camera.Frame) (Result, error) {
	found, err := l.detector.Detect(ctx, frame.Color)
	if err != nil {
		return Result{}, err
	}
	if !found.Found() {
		return NoDetection(OutcomeNoFace, frame.CapturedAt), nil
	}
	ref, ok := SelectReference(found, frame.Width(), frame.Height())
	if !ok {
		return NoDetection(OutcomeNoReference, frame.CapturedAt), nil
	}
	return l.projector.Project(ref, frame.Depth, frame.Model, frame.CapturedAt), nil
}

func (l *Loop) close(ctx context.Context) error {
	return multierr.Combine(
		errors.Wrap(l.source.Close(ctx), "closing frame source"),
		errors.Wrap(l.detector.Close(ctx), "closing detector"),
		errors.Wrap(l.publisher.Close(ctx), "closing publisher"),
	)
}
