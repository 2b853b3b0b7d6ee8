package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/metrics"
	"github.com/parallaxlab/headtrack/tracking"
)

type fakeStatus struct {
	state    tracking.State
	frames   uint64
	last     tracking.Result
	position *tracking.CameraPoint
}

func (f *fakeStatus) State() tracking.State { return f.state }
func (f *fakeStatus) Frames() uint64        { return f.frames }
func (f *fakeStatus) Last() tracking.Result { return f.last }

func (f *fakeStatus) LastPosition() (tracking.CameraPoint, bool) {
	if f.position == nil {
		return tracking.CameraPoint{}, false
	}
	return *f.position, true
}

// show records res the way the loop does.
func (f *fakeStatus) show(res tracking.Result) {
	f.frames++
	f.last = res
	if res.IsValid() {
		pt := res.Point
		f.position = &pt
	}
}

type fakeSnapshots struct {
	data   []byte
	frames uint64
}

func (f *fakeSnapshots) Snapshot() ([]byte, uint64) { return f.data, f.frames }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	status := &fakeStatus{state: tracking.StateIdle}
	h := NewServer("", uuid.New(), status, nil, nil, logging.NewTestLogger(t)).Handler()

	rec := get(t, h, "/healthz")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusServiceUnavailable)
	test.That(t, rec.Body.String(), test.ShouldEqual, "idle\n")

	status.state = tracking.StateRunning
	rec = get(t, h, "/healthz")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldEqual, "running\n")
}

func TestState(t *testing.T) {
	session := uuid.New()
	status := &fakeStatus{state: tracking.StateRunning}
	h := NewServer("", session, status, nil, nil, logging.NewTestLogger(t)).Handler()

	rec := get(t, h, "/state")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "application/json")
	var resp StateResponse
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp.Session, test.ShouldEqual, session.String())
	test.That(t, resp.State, test.ShouldEqual, "running")
	test.That(t, resp.Outcome, test.ShouldBeEmpty)
	test.That(t, resp.Last, test.ShouldBeNil)

	status.frames = 11
	status.show(tracking.Result{
		Outcome: tracking.OutcomeValid,
		Point:   tracking.CameraPoint{Position: r3.Vector{X: 0.1, Y: 0.2, Z: 0.9}, CapturedAt: time.Unix(20, 500000000)},
	})
	rec = get(t, h, "/state")
	resp = StateResponse{}
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp.Frames, test.ShouldEqual, uint64(12))
	test.That(t, resp.Outcome, test.ShouldEqual, "valid")
	test.That(t, resp.Last, test.ShouldNotBeNil)
	test.That(t, resp.Last.Z, test.ShouldEqual, 0.9)
	test.That(t, resp.Last.TS, test.ShouldEqual, 20.5)

	// the last sent position stays reported while no face is found
	status.show(tracking.NoDetection(tracking.OutcomeNoFace, time.Unix(21, 0)))
	rec = get(t, h, "/state")
	resp = StateResponse{}
	test.That(t, json.Unmarshal(rec.Body.Bytes(), &resp), test.ShouldBeNil)
	test.That(t, resp.Frames, test.ShouldEqual, uint64(13))
	test.That(t, resp.Outcome, test.ShouldEqual, "no_face")
	test.That(t, resp.Last, test.ShouldNotBeNil)
	test.That(t, resp.Last.Z, test.ShouldEqual, 0.9)
	test.That(t, resp.Last.TS, test.ShouldEqual, 20.5)
}

func TestMetricsAndOverlayRoutes(t *testing.T) {
	status := &fakeStatus{state: tracking.StateRunning}

	h := NewServer("", uuid.New(), status, nil, nil, logging.NewTestLogger(t)).Handler()
	test.That(t, get(t, h, "/metrics").Code, test.ShouldEqual, http.StatusNotFound)
	test.That(t, get(t, h, "/overlay.jpg").Code, test.ShouldEqual, http.StatusNotFound)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IncrementFrame("valid")
	snapshots := &fakeSnapshots{}
	h = NewServer("", uuid.New(), status, snapshots, reg, logging.NewTestLogger(t)).Handler()

	rec := get(t, h, "/metrics")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, `headtrack_frames_total{outcome="valid"} 1`)

	test.That(t, get(t, h, "/overlay.jpg").Code, test.ShouldEqual, http.StatusNotFound)

	snapshots.data = []byte{0xff, 0xd8, 0xff}
	snapshots.frames = 3
	rec = get(t, h, "/overlay.jpg")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "image/jpeg")
	test.That(t, rec.Header().Get("X-Frame-Count"), test.ShouldEqual, "3")
	test.That(t, rec.Body.Bytes(), test.ShouldResemble, snapshots.data)
}

func TestServe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	srv := NewServer("", uuid.New(), &fakeStatus{state: tracking.StateRunning}, nil, nil, logging.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, listener)
	}()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	test.That(t, err, test.ShouldBeNil)
	body, err := io.ReadAll(resp.Body)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Body.Close(), test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, string(body), test.ShouldEqual, "running\n")

	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
