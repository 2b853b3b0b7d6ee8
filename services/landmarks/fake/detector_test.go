package fake

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/services/landmarks"
)

func TestMesh(t *testing.T) {
	left := landmarks.Landmark{X: 0.4, Y: 0.5}
	right := landmarks.Landmark{X: 0.6, Y: 0.5}

	mesh := Mesh(left, right, false)
	test.That(t, len(mesh), test.ShouldEqual, landmarks.MeshLandmarkCount)
	test.That(t, mesh.HasIris(), test.ShouldBeFalse)
	test.That(t, mesh[landmarks.LeftEyeCorner], test.ShouldResemble, left)
	test.That(t, mesh[landmarks.RightEyeCorner], test.ShouldResemble, right)
	test.That(t, mesh[0].X, test.ShouldAlmostEqual, 0.5)

	refined := Mesh(left, right, true)
	test.That(t, len(refined), test.ShouldEqual, landmarks.RefinedLandmarkCount)
	test.That(t, refined[landmarks.LeftIrisCenter], test.ShouldResemble, left)
	test.That(t, refined[landmarks.RightIrisCenter], test.ShouldResemble, right)
}

func TestScriptedDetector(t *testing.T) {
	ctx := context.Background()
	face := Mesh(landmarks.Landmark{X: 0.4}, landmarks.Landmark{X: 0.6}, false)
	det := NewScripted(false, face, nil)

	found, err := det.Detect(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldResemble, face)

	found, err = det.Detect(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found.Found(), test.ShouldBeFalse)

	// past the end there is no face
	found, err = det.Detect(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeNil)

	test.That(t, det.Close(ctx), test.ShouldBeNil)
	_, err = det.Detect(ctx, nil)
	test.That(t, err, test.ShouldNotBeNil)

	found, err = NewScripted(true).Detect(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeNil)
}

func TestSwayDetectorLoops(t *testing.T) {
	ctx := context.Background()
	det := NewSway(4, true)

	var xs []float64
	for i := 0; i < 5; i++ {
		found, err := det.Detect(ctx, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, found.HasIris(), test.ShouldBeTrue)
		xs = append(xs, (found[landmarks.LeftIrisCenter].X+found[landmarks.RightIrisCenter].X)/2)
	}
	test.That(t, xs[0], test.ShouldAlmostEqual, 0.5)
	test.That(t, xs[1], test.ShouldAlmostEqual, 0.65)
	test.That(t, xs[3], test.ShouldAlmostEqual, 0.35)
	test.That(t, xs[4], test.ShouldAlmostEqual, xs[0])
}
