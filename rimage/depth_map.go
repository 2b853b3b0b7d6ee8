package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Depth is the depth of a single pixel in millimeters. Zero means the sensor returned nothing.
type Depth uint16

// MaxDepth is the largest representable depth.
const MaxDepth = Depth(math.MaxUint16)

// UnitsPerMeter is the number of Depth units in one meter.
const UnitsPerMeter = 1000.0

// Meters converts the depth to meters.
func (d Depth) Meters() float64 {
	return float64(d) / UnitsPerMeter
}

// DepthMap is a row-major grid of depths aligned pixel-for-pixel with a color image.
// It satisfies image.Image as 16-bit gray so it can be encoded losslessly as PNG.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a zero-filled depth map.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// NewConstantDepthMap returns a depth map filled with a single value.
func NewConstantDepthMap(width, height int, d Depth) *DepthMap {
	dm := NewEmptyDepthMap(width, height)
	for i := range dm.data {
		dm.data[i] = d
	}
	return dm
}

// ConvertImageToDepthMap interprets a 16-bit gray image (millimeters) as a depth map. Other
// image types are converted through color.Gray16Model.
func ConvertImageToDepthMap(img image.Image) (*DepthMap, error) {
	if img == nil {
		return nil, errors.New("cannot convert nil image to depth map")
	}
	switch ii := img.(type) {
	case *DepthMap:
		return ii, nil
	case *image.Gray16:
		bounds := ii.Bounds()
		dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				dm.Set(x, y, Depth(ii.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
			}
		}
		return dm, nil
	default:
		bounds := img.Bounds()
		dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				g, ok := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				if !ok {
					return nil, errors.Errorf("cannot convert pixel (%d,%d) of %T to gray16", x, y, img)
				}
				dm.Set(x, y, Depth(g.Y))
			}
		}
		return dm, nil
	}
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle dimensions of the depth map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// Contains reports whether the point is addressable.
func (dm *DepthMap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// Get returns the depth at a point.
func (dm *DepthMap) Get(p image.Point) Depth {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// GetDepth returns the depth at (x, y).
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at (x, y).
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// MetersAt returns the depth at p in meters. Points outside the map read as 0.
func (dm *DepthMap) MetersAt(p image.Point) float64 {
	if dm == nil || !dm.Contains(p.X, p.Y) {
		return 0
	}
	return dm.Get(p).Meters()
}

// MinMax returns the smallest and largest non-zero depth.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	min, max := MaxDepth, Depth(0)
	for _, d := range dm.data {
		if d == 0 {
			continue
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

// ColorModel is Gray16.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// At returns the depth at (x, y) as a Gray16 color.
func (dm *DepthMap) At(x, y int) color.Color {
	if !dm.Contains(x, y) {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(dm.GetDepth(x, y))}
}
