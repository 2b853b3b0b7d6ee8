package transform

import (
	"testing"

	"go.viam.com/test"
)

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(NoneDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldBeNil)

	d, err = NewDistorter(BrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{0.1, 0, 0, 0, 0})

	_, err = NewDistorter(BrownConradyDistortionType, make([]float64, 6))
	test.That(t, err.Error(), test.ShouldContainSubstring, "too long")
	_, err = NewDistorter(KannalaBrandtDistortionType, make([]float64, 5))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistorter("ftheta", nil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ftheta")
}

func TestDistortersInvert(t *testing.T) {
	bc, err := NewBrownConrady([]float64{0.12, -0.04, 0.01, 0.002, -0.001})
	test.That(t, err, test.ShouldBeNil)
	ibc, err := NewInverseBrownConrady([]float64{0.12, -0.04, 0.01, 0.002, -0.001})
	test.That(t, err, test.ShouldBeNil)
	kb, err := NewKannalaBrandt([]float64{-0.01, 0.04, -0.03, 0.005})
	test.That(t, err, test.ShouldBeNil)

	for _, d := range []Distorter{bc, ibc, kb} {
		test.That(t, d.CheckValid(), test.ShouldBeNil)
		for _, pt := range [][2]float64{{0, 0}, {0.3, -0.2}, {-0.45, 0.1}} {
			xd, yd := d.Transform(pt[0], pt[1])
			xu, yu := d.Undistort(xd, yd)
			test.That(t, xu, test.ShouldAlmostEqual, pt[0], 1e-7)
			test.That(t, yu, test.ShouldAlmostEqual, pt[1], 1e-7)
		}
	}

	// both Brown-Conrady variants share coefficients but run in opposite directions
	xd, yd := bc.Transform(0.3, -0.2)
	xi, yi := ibc.Undistort(0.3, -0.2)
	test.That(t, xi, test.ShouldEqual, xd)
	test.That(t, yi, test.ShouldEqual, yd)
}

func TestNilDistorters(t *testing.T) {
	var bc *BrownConrady
	var ibc *InverseBrownConrady
	var kb *KannalaBrandt
	for _, d := range []Distorter{bc, ibc, kb} {
		test.That(t, d.CheckValid(), test.ShouldNotBeNil)
		test.That(t, d.Parameters(), test.ShouldBeEmpty)
		x, y := d.Undistort(0.25, 0.5)
		test.That(t, x, test.ShouldEqual, 0.25)
		test.That(t, y, test.ShouldEqual, 0.5)
	}
}
