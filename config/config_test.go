package config

import (
	"testing"

	"go.uber.org/multierr"
	"go.viam.com/test"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/tracking"
)

func TestDefault(t *testing.T) {
	conf := Default()
	test.That(t, conf.Validate(), test.ShouldBeNil)
	test.That(t, conf.Fake.Width, test.ShouldEqual, camera.DefaultWidth)
	test.That(t, conf.Fake.Height, test.ShouldEqual, camera.DefaultHeight)
	test.That(t, conf.Fake.FrameRate, test.ShouldEqual, camera.DefaultFrameRate)
	test.That(t, conf.Tracking.Alpha, test.ShouldEqual, tracking.DefaultAlpha)
	test.That(t, conf.Publish.Address, test.ShouldEqual, "127.0.0.1:5005")
	test.That(t, conf.Publish.Encoding, test.ShouldEqual, publish.EncodingJSON)
	test.That(t, conf.StatusAddress, test.ShouldBeEmpty)
}

func TestValidate(t *testing.T) {
	t.Run("replay needs a directory", func(t *testing.T) {
		conf := Default()
		conf.Source = SourceReplay
		err := conf.Validate()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "recording directory")

		conf.Replay.Dir = t.TempDir()
		test.That(t, conf.Validate(), test.ShouldBeNil)
	})

	t.Run("sidecar needs a url", func(t *testing.T) {
		conf := Default()
		conf.Detector = DetectorSidecar
		test.That(t, conf.Validate(), test.ShouldNotBeNil)
		conf.Sidecar.URL = "http://127.0.0.1:9000/detect"
		test.That(t, conf.Validate(), test.ShouldBeNil)
	})

	t.Run("overlay needs the status server", func(t *testing.T) {
		conf := Default()
		conf.Overlay = true
		test.That(t, conf.Validate(), test.ShouldNotBeNil)
		conf.StatusAddress = "127.0.0.1:8080"
		test.That(t, conf.Validate(), test.ShouldBeNil)
	})

	t.Run("reports every problem", func(t *testing.T) {
		conf := Default()
		conf.Source = "webcam"
		conf.Detector = "opencv"
		conf.Tracking.Alpha = 2
		conf.Publish.Encoding = "xml"
		err := conf.Validate()
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, multierr.Errors(err), test.ShouldHaveLength, 4)
		test.That(t, err.Error(), test.ShouldContainSubstring, "webcam")
		test.That(t, err.Error(), test.ShouldContainSubstring, "opencv")
	})

	t.Run("odd fake resolution", func(t *testing.T) {
		conf := Default()
		conf.Fake.Width = 641
		test.That(t, conf.Validate(), test.ShouldNotBeNil)
	})
}
