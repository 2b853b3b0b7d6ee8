package tracking

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/rimage/transform"
)

type constantDepth float64

func (d constantDepth) MetersAt(image.Point) float64 {
	return float64(d)
}

func testModel() *transform.PinholeCameraModel {
	return &transform.PinholeCameraModel{PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
		Width: 640, Height: 480, Fx: 1000, Fy: 1000, Ppx: 320, Ppy: 240,
	}}
}

func TestValidDepth(t *testing.T) {
	for _, tc := range []struct {
		depth float64
		valid bool
	}{
		{0, false},
		{-1, false},
		{0.001, true},
		{2.5, true},
		{MaxDepthMeters, true},
		{5.0001, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	} {
		test.That(t, ValidDepth(tc.depth), test.ShouldEqual, tc.valid)
	}
}

func TestProject(t *testing.T) {
	capturedAt := time.Unix(1700000000, 250000000)
	ref := Reference{Left: image.Point{300, 240}, Right: image.Point{400, 240}, Center: image.Point{350, 240}}
	projector := NewProjector(nil)

	t.Run("valid depth", func(t *testing.T) {
		res := projector.Project(ref, constantDepth(2.5), testModel(), capturedAt)
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeValid)
		test.That(t, res.IsValid(), test.ShouldBeTrue)
		test.That(t, res.Point.Position.X, test.ShouldAlmostEqual, 0.075)
		test.That(t, res.Point.Position.Y, test.ShouldAlmostEqual, 0)
		test.That(t, res.Point.Position.Z, test.ShouldAlmostEqual, 2.5)
		test.That(t, res.Point.CapturedAt, test.ShouldEqual, capturedAt)
		test.That(t, res.DepthMeters, test.ShouldEqual, 2.5)
		test.That(t, *res.Reference, test.ShouldResemble, ref)
	})

	t.Run("depth gate boundary is inclusive", func(t *testing.T) {
		res := projector.Project(ref, constantDepth(5.0), testModel(), capturedAt)
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeValid)
		test.That(t, res.Point.Position.Z, test.ShouldEqual, 5.0)
	})

	for _, depth := range []float64{0, -1, 5.0001, math.NaN()} {
		res := projector.Project(ref, constantDepth(depth), testModel(), capturedAt)
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeInvalidDepth)
		test.That(t, res.IsValid(), test.ShouldBeFalse)
		test.That(t, res.Point.Position, test.ShouldResemble, r3.Vector{})
		test.That(t, res.Point.CapturedAt, test.ShouldEqual, capturedAt)
		test.That(t, res.Reference, test.ShouldNotBeNil)
	}

	t.Run("depth map in millimeters", func(t *testing.T) {
		dm := rimage.NewEmptyDepthMap(640, 480)
		dm.Set(350, 240, 1000)
		res := projector.Project(ref, dm, testModel(), capturedAt)
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeValid)
		test.That(t, res.Point.Position.X, test.ShouldAlmostEqual, 0.03)
		test.That(t, res.Point.Position.Z, test.ShouldAlmostEqual, 1.0)

		dm.Set(350, 240, 0)
		res = projector.Project(ref, dm, testModel(), capturedAt)
		test.That(t, res.Outcome, test.ShouldEqual, OutcomeInvalidDepth)
	})

	t.Run("custom deprojection", func(t *testing.T) {
		var gotX, gotY, gotDepth float64
		custom := NewProjector(func(model *transform.PinholeCameraModel, px, py, depth float64) r3.Vector {
			gotX, gotY, gotDepth = px, py, depth
			return r3.Vector{X: 1, Y: 2, Z: 3}
		})
		res := custom.Project(ref, constantDepth(1.5), testModel(), capturedAt)
		test.That(t, res.Point.Position, test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
		test.That(t, gotX, test.ShouldEqual, 350.0)
		test.That(t, gotY, test.ShouldEqual, 240.0)
		test.That(t, gotDepth, test.ShouldEqual, 1.5)
	})
}
