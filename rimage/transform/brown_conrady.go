package transform

import "github.com/pkg/errors"

// BrownConrady is a distortion model for fairly simple lenses. Parameters are ordered
// [k1, k2, k3, p1, p2].
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	k, err := fillParameters(inp, 5)
	if err != nil {
		return nil, err
	}
	return &BrownConrady{k[0], k[1], k[2], k[3], k[4]}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the ideal point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	return brownConradyForward(bc.Parameters(), x, y)
}

// Undistort recovers the ideal point from a distorted one.
func (bc *BrownConrady) Undistort(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	return brownConradyInverse(bc.Parameters(), x, y)
}

func fillParameters(inp []float64, n int) ([]float64, error) {
	if len(inp) > n {
		return nil, errors.Errorf("list of parameters too long, expected max %d, got %d", n, len(inp))
	}
	out := make([]float64, n)
	copy(out, inp)
	return out, nil
}

// brownConradyForward applies
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
//
// with k ordered [k1, k2, k3, p1, p2].
func brownConradyForward(k []float64, xu, yu float64) (float64, float64) {
	r2 := xu*xu + yu*yu
	radDist := 1.0 + r2*(k[0]+r2*(k[1]+r2*k[2]))
	xd := xu*radDist + 2.0*k[3]*xu*yu + k[4]*(r2+2.0*xu*xu)
	yd := yu*radDist + 2.0*k[4]*xu*yu + k[3]*(r2+2.0*yu*yu)
	return xd, yd
}

// brownConradyInverse solves brownConradyForward for the undistorted point with Newton-Raphson,
// starting from the distorted point.
func brownConradyInverse(k []float64, xd, yd float64) (float64, float64) {
	k1, k2, k3, p1, p2 := k[0], k[1], k[2], k[3], k[4]
	xu, yu := xd, yd

	const maxIterations = 20
	const tolerance = 1e-10

	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst := brownConradyForward(k, xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		r2 := xu*xu + yu*yu
		r4 := r2 * r2
		radDist := 1.0 + k1*r2 + k2*r4 + k3*r4*r2
		dRad := 2.0 * (k1 + 2.0*k2*r2 + 3.0*k3*r4)

		// J = [[dxd/dxu, dxd/dyu], [dyd/dxu, dyd/dyu]]
		dxdDxu := radDist + xu*xu*dRad + 2.0*p1*yu + 6.0*p2*xu
		dxdDyu := xu*yu*dRad + 2.0*p1*xu + 2.0*p2*yu
		dydDxu := xu*yu*dRad + 2.0*p2*yu + 2.0*p1*xu
		dydDyu := radDist + yu*yu*dRad + 2.0*p2*xu + 6.0*p1*yu

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}
	return xu, yu
}
