package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestDepthMapAccess(t *testing.T) {
	dm := NewEmptyDepthMap(4, 3)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))

	dm.Set(3, 2, 1234)
	test.That(t, dm.GetDepth(3, 2), test.ShouldEqual, Depth(1234))
	test.That(t, dm.Get(image.Point{3, 2}), test.ShouldEqual, Depth(1234))
	test.That(t, dm.At(3, 2), test.ShouldResemble, color.Gray16{Y: 1234})
	test.That(t, dm.At(4, 2), test.ShouldResemble, color.Gray16{})

	test.That(t, dm.Contains(0, 0), test.ShouldBeTrue)
	test.That(t, dm.Contains(4, 0), test.ShouldBeFalse)
	test.That(t, dm.Contains(0, -1), test.ShouldBeFalse)
}

func TestDepthMapMeters(t *testing.T) {
	dm := NewConstantDepthMap(2, 2, 5000)
	test.That(t, dm.MetersAt(image.Point{1, 1}), test.ShouldEqual, 5.0)
	test.That(t, Depth(2500).Meters(), test.ShouldEqual, 2.5)
	test.That(t, Depth(0).Meters(), test.ShouldEqual, 0.0)

	// out of bounds and nil maps read as no return
	test.That(t, dm.MetersAt(image.Point{2, 0}), test.ShouldEqual, 0.0)
	var nilMap *DepthMap
	test.That(t, nilMap.MetersAt(image.Point{}), test.ShouldEqual, 0.0)
}

func TestDepthMapMinMax(t *testing.T) {
	dm := NewEmptyDepthMap(3, 1)
	dm.Set(0, 0, 700)
	dm.Set(2, 0, 300)
	min, max := dm.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(300))
	test.That(t, max, test.ShouldEqual, Depth(700))
}

func TestConvertImageToDepthMap(t *testing.T) {
	_, err := ConvertImageToDepthMap(nil)
	test.That(t, err, test.ShouldNotBeNil)

	gray := image.NewGray16(image.Rect(0, 0, 2, 2))
	gray.SetGray16(1, 0, color.Gray16{Y: 800})
	dm, err := ConvertImageToDepthMap(gray)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dm.GetDepth(1, 0), test.ShouldEqual, Depth(800))
	test.That(t, dm.GetDepth(0, 1), test.ShouldEqual, Depth(0))

	same, err := ConvertImageToDepthMap(dm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, dm)
}
