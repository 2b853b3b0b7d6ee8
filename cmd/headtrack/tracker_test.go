package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/components/camera/replay"
	"github.com/parallaxlab/headtrack/config"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/testutils"
	"github.com/parallaxlab/headtrack/tracking"
)

func TestTrackerPublishes(t *testing.T) {
	receiver := testutils.ListenUDP(t)

	conf := config.Default()
	conf.Publish.Address = receiver.LocalAddr().String()
	conf.Fake.FrameRate = 100
	conf.StatusAddress = testutils.FreeTCPAddress(t)
	conf.Overlay = true
	test.That(t, conf.Validate(), test.ShouldBeNil)

	tr, err := newTracker(conf, clock.New(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.status, test.ShouldNotBeNil)
	test.That(t, tr.overlay, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tr.run(ctx)
	}()

	payload, err := publish.Decode(publish.EncodingJSON, testutils.ReceiveDatagram(t, receiver, 5*time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, payload.Z, test.ShouldAlmostEqual, 1.0)
	test.That(t, payload.TS, test.ShouldBeGreaterThan, 0)

	test.That(t, testutils.WaitSuccessfulDial(conf.StatusAddress), test.ShouldBeNil)
	resp, err := http.Get("http://" + conf.StatusAddress + "/healthz")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Body.Close(), test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)

	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(10 * time.Second):
		t.Fatal("tracker did not stop")
	}
	test.That(t, tr.loop.State(), test.ShouldEqual, tracking.StateStopped)
}

func TestTrackerTraceFrames(t *testing.T) {
	receiver := testutils.ListenUDP(t)

	conf := config.Default()
	conf.Publish.Address = receiver.LocalAddr().String()
	conf.Fake.FrameRate = 100
	conf.TraceFrames = true
	test.That(t, conf.Validate(), test.ShouldBeNil)

	logger, observed := logging.NewObservedTestLogger(t)
	logger.SetLevel(logging.INFO)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runTracker(ctx, conf, logger)
	}()
	testutils.ReceiveDatagram(t, receiver, 5*time.Second)
	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(10 * time.Second):
		t.Fatal("tracker did not stop")
	}

	frames := observed.FilterMessage("frame processed").All()
	test.That(t, len(frames), test.ShouldBeGreaterThan, 0)
	test.That(t, frames[0].ContextMap()["debug"], test.ShouldNotBeEmpty)
	test.That(t, observed.FilterMessage("published").Len(), test.ShouldBeGreaterThan, 0)
}

func TestTrackerBadSource(t *testing.T) {
	conf := config.Default()
	conf.Source = config.SourceReplay
	conf.Replay.Dir = t.TempDir()
	_, err := newTracker(conf, clock.New(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot open frame source")
}

func TestRecordAndReplay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	conf := config.Default()
	conf.Fake.FrameRate = 0
	conf.Fake.DepthMeters = 0.8
	logger := logging.NewTestLogger(t)

	test.That(t, record(context.Background(), conf, dir, 3, logger), test.ShouldBeNil)
	_, err := os.Stat(filepath.Join(dir, replay.IntrinsicsFile))
	test.That(t, err, test.ShouldBeNil)
	matches, err := filepath.Glob(filepath.Join(dir, "*_depth.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches, test.ShouldHaveLength, 3)

	// a tracker replaying the recording stops once it runs out of frames
	receiver := testutils.ListenUDP(t)

	conf.Source = config.SourceReplay
	conf.Replay = replay.Config{Dir: dir}
	conf.Publish.Address = receiver.LocalAddr().String()
	conf.Detector = config.DetectorFake
	test.That(t, conf.Validate(), test.ShouldBeNil)

	tr, err := newTracker(conf, clock.New(), logger)
	test.That(t, err, test.ShouldBeNil)
	err = tr.run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exhausted")
	test.That(t, tr.loop.Frames(), test.ShouldEqual, uint64(3))

	payload, err := publish.Decode(publish.EncodingJSON, testutils.ReceiveDatagram(t, receiver, 2*time.Second))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, payload.Z, test.ShouldAlmostEqual, 0.8)
}

func TestRecordRejectsZeroFrames(t *testing.T) {
	err := record(context.Background(), config.Default(), t.TempDir(), 0, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
