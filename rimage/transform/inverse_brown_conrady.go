package transform

// InverseBrownConrady carries Brown-Conrady coefficients that map observed coordinates back to
// ideal ones, as some depth cameras report for their color stream. Undistorting is therefore the
// closed-form polynomial and distorting needs the iterative inverse.
type InverseBrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewInverseBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	k, err := fillParameters(inp, 5)
	if err != nil {
		return nil, err
	}
	return &InverseBrownConrady{k[0], k[1], k[2], k[3], k[4]}, nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return []float64{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

// Transform finds the observed point whose undistortion is (x, y).
func (ibc *InverseBrownConrady) Transform(x, y float64) (float64, float64) {
	if ibc == nil {
		return x, y
	}
	return brownConradyInverse(ibc.Parameters(), x, y)
}

// Undistort applies the coefficients directly to the observed point.
func (ibc *InverseBrownConrady) Undistort(x, y float64) (float64, float64) {
	if ibc == nil {
		return x, y
	}
	return brownConradyForward(ibc.Parameters(), x, y)
}
