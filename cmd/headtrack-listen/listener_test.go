package main

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/testutils"
)

func TestWindowSummary(t *testing.T) {
	var w window
	test.That(t, w.summarize(), test.ShouldResemble, Summary{})

	base := time.Unix(1000, 0)
	for i, z := range []float64{1.0, 1.02, 0.98, 1.0, 1.0} {
		arrived := base.Add(time.Duration(i) * 40 * time.Millisecond)
		w.add(publish.Payload{X: 0.1, Y: 0, Z: z, TS: publish.UnixSeconds(arrived.Add(-10 * time.Millisecond))}, arrived)
	}
	w.reject()

	s := w.summarize()
	test.That(t, s.Received, test.ShouldEqual, 5)
	test.That(t, s.Invalid, test.ShouldEqual, 1)
	test.That(t, s.MeanInterval, test.ShouldAlmostEqual, 0.04, 1e-6)
	test.That(t, s.StdInterval, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, s.P95Interval, test.ShouldAlmostEqual, 0.04, 1e-6)
	test.That(t, s.StdX, test.ShouldAlmostEqual, 0)
	test.That(t, s.StdZ, test.ShouldAlmostEqual, 0.01414213562, 1e-6)
	test.That(t, s.MeanAge, test.ShouldAlmostEqual, 0.01, 1e-6)

	// the window starts over
	test.That(t, w.summarize(), test.ShouldResemble, Summary{})
}

func TestListener(t *testing.T) {
	conn := testutils.ListenUDP(t)
	sender := testutils.ListenUDP(t)

	send := func(data []byte) {
		_, err := sender.WriteTo(data, conn.LocalAddr())
		test.That(t, err, test.ShouldBeNil)
	}
	good, err := publish.Payload{X: 0.03, Y: 0, Z: 1, TS: 1700000000}.Encode(publish.EncodingJSON)
	test.That(t, err, test.ShouldBeNil)
	send([]byte(`{"offset_x":0.5,"offset_y":0.5}`))
	send(good)
	send(good)

	var summaries []Summary
	l := newListener(conn, publish.EncodingJSON, clock.New(), logging.NewTestLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = l.run(ctx, 2, 0, func(s Summary) { summaries = append(summaries, s) })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctx.Err(), test.ShouldBeNil)

	test.That(t, summaries, test.ShouldHaveLength, 1)
	test.That(t, summaries[0].Received, test.ShouldEqual, 2)
	test.That(t, summaries[0].Invalid, test.ShouldEqual, 1)
}

func TestListenerBinary(t *testing.T) {
	conn := testutils.ListenUDP(t)

	l := newListener(conn, publish.EncodingBinary, clock.New(), logging.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Summary, 1)
	go func() {
		//nolint:errcheck
		l.run(ctx, 1, 0, func(s Summary) { received <- s })
	}()

	data, err := publish.Payload{X: 0.5, Y: 0.25, Z: 2, TS: 10}.Encode(publish.EncodingBinary)
	test.That(t, err, test.ShouldBeNil)
	_, err = testutils.ListenUDP(t).WriteTo(data, conn.LocalAddr())
	test.That(t, err, test.ShouldBeNil)

	select {
	case s := <-received:
		test.That(t, s.Received, test.ShouldEqual, 1)
		test.That(t, s.Invalid, test.ShouldEqual, 0)
	case <-time.After(5 * time.Second):
		t.Fatal("no datagram received")
	}
}
