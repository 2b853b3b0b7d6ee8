package main

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/parallaxlab/headtrack/publish"
)

// window collects received positions between reports.
type window struct {
	arrivals []float64
	x, y, z  []float64
	ages     []float64
	invalid  int
}

// Summary describes the stream over one window.
type Summary struct {
	Received int
	Invalid  int
	// Interval statistics of datagram arrivals, in seconds.
	MeanInterval float64
	StdInterval  float64
	P95Interval  float64
	// Standard deviation of each axis in meters, the positional jitter.
	StdX, StdY, StdZ float64
	// Mean delay between capture and arrival in seconds.
	MeanAge float64
}

func (w *window) add(p publish.Payload, arrived time.Time) {
	w.arrivals = append(w.arrivals, publish.UnixSeconds(arrived))
	w.x = append(w.x, p.X)
	w.y = append(w.y, p.Y)
	w.z = append(w.z, p.Z)
	w.ages = append(w.ages, arrived.Sub(p.Time()).Seconds())
}

func (w *window) reject() {
	w.invalid++
}

// summarize computes the window's statistics and empties it.
func (w *window) summarize() Summary {
	s := Summary{Received: len(w.arrivals), Invalid: w.invalid}
	if len(w.arrivals) > 1 {
		intervals := make([]float64, 0, len(w.arrivals)-1)
		for i := 1; i < len(w.arrivals); i++ {
			intervals = append(intervals, w.arrivals[i]-w.arrivals[i-1])
		}
		s.MeanInterval, s.StdInterval = stat.MeanStdDev(intervals, nil)
		sort.Float64s(intervals)
		s.P95Interval = stat.Quantile(0.95, stat.Empirical, intervals, nil)
		s.StdX = stat.StdDev(w.x, nil)
		s.StdY = stat.StdDev(w.y, nil)
		s.StdZ = stat.StdDev(w.z, nil)
	}
	if len(w.ages) > 0 {
		s.MeanAge = stat.Mean(w.ages, nil)
	}
	*w = window{}
	return s
}
