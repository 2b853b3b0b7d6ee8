package rimage

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ReadImageFromFile decodes a PNG or JPEG color image.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// ReadDepthMapFromFile decodes a 16-bit gray PNG holding millimeter depths.
func ReadDepthMapFromFile(path string) (*DepthMap, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".png" {
		return nil, errors.Errorf("depth maps must be stored as png, got %q", ext)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read depth map %q", path)
	}
	if _, ok := img.(*image.Gray16); !ok {
		return nil, errors.Errorf("depth map %q is %T, expected 16-bit gray", path, img)
	}
	return ConvertImageToDepthMap(img)
}

// WriteImageToFile encodes img by the file extension (.png, .jpg or .jpeg). A DepthMap
// written as .png keeps its full 16-bit depth.
func WriteImageToFile(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "cannot write image %q", path)
	}
	return nil
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, errors.Wrap(err, "jpeg encode failed")
	}
	return buf.Bytes(), nil
}
