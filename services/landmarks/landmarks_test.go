package landmarks

import (
	"testing"

	"go.viam.com/test"
)

func TestLandmarksPresence(t *testing.T) {
	var none Landmarks
	test.That(t, none.Found(), test.ShouldBeFalse)
	test.That(t, none.Has(LeftEyeCorner), test.ShouldBeFalse)
	test.That(t, Landmarks{}.Found(), test.ShouldBeFalse)

	mesh := make(Landmarks, MeshLandmarkCount)
	test.That(t, mesh.Found(), test.ShouldBeTrue)
	test.That(t, mesh.Has(RightEyeCorner), test.ShouldBeTrue)
	test.That(t, mesh.Has(LeftIrisCenter), test.ShouldBeFalse)
	test.That(t, mesh.Has(-1), test.ShouldBeFalse)
	test.That(t, mesh.HasIris(), test.ShouldBeFalse)

	refined := make(Landmarks, RefinedLandmarkCount)
	test.That(t, refined.HasIris(), test.ShouldBeTrue)
	test.That(t, make(Landmarks, IrisLandmarkCount).HasIris(), test.ShouldBeTrue)
	test.That(t, make(Landmarks, IrisLandmarkCount-1).HasIris(), test.ShouldBeFalse)
}
