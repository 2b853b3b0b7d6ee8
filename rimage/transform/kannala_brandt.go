package transform

import "math"

// KannalaBrandt is the four coefficient fisheye model. Parameters are ordered [k1, k2, k3, k4].
type KannalaBrandt struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewKannalaBrandt takes in a slice of floats that will be passed into the struct in order.
func NewKannalaBrandt(inp []float64) (*KannalaBrandt, error) {
	k, err := fillParameters(inp, 4)
	if err != nil {
		return nil, err
	}
	return &KannalaBrandt{k[0], k[1], k[2], k[3]}, nil
}

// CheckValid checks if the fields for KannalaBrandt have valid inputs.
func (kb *KannalaBrandt) CheckValid() error {
	if kb == nil {
		return InvalidDistortionError("KannalaBrandt shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (kb *KannalaBrandt) ModelType() DistortionType {
	return KannalaBrandtDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (kb *KannalaBrandt) Parameters() []float64 {
	if kb == nil {
		return []float64{}
	}
	return []float64{kb.K1, kb.K2, kb.K3, kb.K4}
}

func (kb *KannalaBrandt) thetaD(theta float64) float64 {
	t2 := theta * theta
	return theta * (1 + t2*(kb.K1+t2*(kb.K2+t2*(kb.K3+t2*kb.K4))))
}

// Transform maps the ideal point onto the fisheye image plane.
func (kb *KannalaBrandt) Transform(x, y float64) (float64, float64) {
	if kb == nil {
		return x, y
	}
	r := math.Hypot(x, y)
	if r < epsilon {
		return x, y
	}
	scale := kb.thetaD(math.Atan(r)) / r
	return x * scale, y * scale
}

// Undistort inverts the fisheye mapping by solving for the incidence angle with Newton's method.
func (kb *KannalaBrandt) Undistort(x, y float64) (float64, float64) {
	if kb == nil {
		return x, y
	}
	rd := math.Hypot(x, y)
	if rd < epsilon {
		rd = epsilon
	}

	theta := rd
	const maxIterations = 10
	for i := 0; i < maxIterations; i++ {
		t2 := theta * theta
		f := kb.thetaD(theta) - rd
		if math.Abs(f) < epsilon {
			break
		}
		df := 1 + t2*(3*kb.K1+t2*(5*kb.K2+t2*(7*kb.K3+9*t2*kb.K4)))
		theta -= f / df
	}

	scale := math.Tan(theta) / rd
	return x * scale, y * scale
}
