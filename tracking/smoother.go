package tracking

import (
	"github.com/pkg/errors"
)

// Smoothing factors. Higher values follow the head with less lag and more jitter.
const (
	DefaultAlpha        = 0.3
	RecommendedMinAlpha = 0.2
	RecommendedMaxAlpha = 0.4
)

// CheckAlpha validates a smoothing factor. It must lie in (0, 1].
func CheckAlpha(alpha float64) error {
	if !(alpha > 0 && alpha <= 1) {
		return errors.Errorf("smoothing factor must be within (0, 1], got %v", alpha)
	}
	return nil
}

// Smoother is an exponential moving average over valid points. It holds the only state that lives
// across frames and must be updated once per frame, in frame order, by a single goroutine.
type Smoother struct {
	alpha       float64
	state       CameraPoint
	initialized bool
}

// NewSmoother returns an uninitialized smoother.
func NewSmoother(alpha float64) (*Smoother, error) {
	if err := CheckAlpha(alpha); err != nil {
		return nil, err
	}
	return &Smoother{alpha: alpha}, nil
}

// Alpha is the smoothing factor.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Update folds res into the state and returns what to publish for the frame. A no-detection
// result leaves the state untouched and is returned as is. The first valid point is taken exactly;
// after that the state becomes (1-α)·state + α·point, and carries the newest capture time.
func (s *Smoother) Update(res Result) Result {
	if !res.IsValid() {
		return res
	}
	if !s.initialized {
		s.state = res.Point
		s.initialized = true
	} else {
		s.state = CameraPoint{
			Position:   s.state.Position.Mul(1 - s.alpha).Add(res.Point.Position.Mul(s.alpha)),
			CapturedAt: res.Point.CapturedAt,
		}
	}
	res.Point = s.state
	return res
}

// State returns the smoothed point and whether any valid point has been seen.
func (s *Smoother) State() (CameraPoint, bool) {
	return s.state, s.initialized
}
