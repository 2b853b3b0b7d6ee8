package transform

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// NoneDistortionType is an ideal lens.
	NoneDistortionType = DistortionType("none")
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// InverseBrownConradyDistortionType is Brown-Conrady with coefficients that undistort instead of distort.
	InverseBrownConradyDistortionType = DistortionType("inverse_brown_conrady")
	// KannalaBrandtDistortionType is for wide-angle and fisheye lense distortion.
	KannalaBrandtDistortionType = DistortionType("kannala_brandt")
)

// Distorter defines a Transform that takes undistorted normalized image coordinates and distorts
// them according to the model. Undistort goes the other way, from what the sensor observed to the
// ideal pinhole coordinates.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
	Undistort(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrapf(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters. An empty type
// or "none" yields a nil Distorter, which is an ideal lens.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case "", NoneDistortionType:
		return nil, nil
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case InverseBrownConradyDistortionType:
		return NewInverseBrownConrady(parameters)
	case KannalaBrandtDistortionType:
		return NewKannalaBrandt(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

type distortionConfig struct {
	Type       DistortionType `json:"type"`
	Parameters []float64      `json:"parameters"`
}

func marshalDistorter(d Distorter) ([]byte, error) {
	if d == nil {
		return json.Marshal(distortionConfig{Type: NoneDistortionType, Parameters: []float64{}})
	}
	return json.Marshal(distortionConfig{Type: d.ModelType(), Parameters: d.Parameters()})
}

func unmarshalDistorter(data []byte) (Distorter, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var conf distortionConfig
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrap(err, "error parsing distortion")
	}
	return NewDistorter(conf.Type, conf.Parameters)
}
