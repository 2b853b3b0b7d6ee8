package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const epsilon = 1e-9

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// CheckValid checks the intrinsics and, if present, the distortion.
func (params *PinholeCameraModel) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("camera model does not exist")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion != nil {
		return params.Distortion.CheckValid()
	}
	return nil
}

// DeprojectPixelToPoint maps a pixel of the sensor's image and its depth in meters to a point in
// the camera frame, in meters, with x right, y down and z forward. The pixel is normalized by the
// focal length and principal point, undistorted according to the model, then scaled by depth.
func (params *PinholeCameraModel) DeprojectPixelToPoint(px, py, depth float64) r3.Vector {
	x := (px - params.Ppx) / params.Fx
	y := (py - params.Ppy) / params.Fy
	if params.Distortion != nil {
		x, y = params.Distortion.Undistort(x, y)
	}
	return r3.Vector{X: depth * x, Y: depth * y, Z: depth}
}

// ProjectPointToPixel is the inverse of DeprojectPixelToPoint. Points at or behind the camera
// plane map to (-1, -1).
func (params *PinholeCameraModel) ProjectPointToPixel(pt r3.Vector) (float64, float64) {
	if pt.Z <= 0 || math.IsNaN(pt.Z) {
		return -1.0, -1.0
	}
	x, y := pt.X/pt.Z, pt.Y/pt.Z
	if params.Distortion != nil {
		x, y = params.Distortion.Transform(x, y)
	}
	return x*params.Fx + params.Ppx, y*params.Fy + params.Ppy
}

type pinholeCameraModelJSON struct {
	Intrinsics *PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion json.RawMessage          `json:"distortion,omitempty"`
}

// MarshalJSON writes the distortion as {"type": ..., "parameters": [...]}.
func (params PinholeCameraModel) MarshalJSON() ([]byte, error) {
	distortion, err := marshalDistorter(params.Distortion)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pinholeCameraModelJSON{Intrinsics: params.PinholeCameraIntrinsics, Distortion: distortion})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (params *PinholeCameraModel) UnmarshalJSON(data []byte) error {
	var raw pinholeCameraModelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	distortion, err := unmarshalDistorter(raw.Distortion)
	if err != nil {
		return err
	}
	params.PinholeCameraIntrinsics = raw.Intrinsics
	params.Distortion = distortion
	return nil
}

// NewPinholeCameraModelFromJSONFile reads and validates a camera model from a JSON file.
func NewPinholeCameraModelFromJSONFile(jsonPath string) (*PinholeCameraModel, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	model := &PinholeCameraModel{}
	if err := json.Unmarshal(byteValue, model); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := model.CheckValid(); err != nil {
		return nil, errors.Wrapf(err, "invalid camera model in %q", jsonPath)
	}
	return model, nil
}
