// Package replay implements a frame source that plays back a recorded directory of aligned frames.
//
// A recording holds intrinsics.json with the color sensor model, and for every frame a color image
// NNNNNN_color.png (or .jpg) next to a 16-bit depth image NNNNNN_depth.png in millimeters.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/components/camera"
	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/rimage/transform"
)

// IntrinsicsFile is the name of the camera model inside a recording.
const IntrinsicsFile = "intrinsics.json"

var colorFileRegexp = regexp.MustCompile(`^(\d+)_color\.(png|jpg|jpeg)$`)

// Config describes where and how to play a recording.
type Config struct {
	Dir       string `json:"dir"`
	FrameRate int    `json:"frame_rate,omitempty"`
	Loop      bool   `json:"loop,omitempty"`
}

// Validate checks that the recording directory is set.
func (conf *Config) Validate() error {
	if conf.Dir == "" {
		return errors.New("replay requires a recording directory")
	}
	if conf.FrameRate < 0 {
		return errors.Errorf("frame rate cannot be negative, got %d", conf.FrameRate)
	}
	return nil
}

type framePaths struct {
	index int
	color string
	depth string
}

// Source plays back a recording in frame order.
type Source struct {
	model  *transform.PinholeCameraModel
	frames []framePaths
	next   int
	loop   bool
	closed bool

	clock  clock.Clock
	pacer  *camera.Pacer
	logger logging.Logger
}

// NewSource indexes the recording in conf.Dir.
func NewSource(conf *Config, clk clock.Clock, logger logging.Logger) (*Source, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	model, err := transform.NewPinholeCameraModelFromJSONFile(filepath.Join(conf.Dir, IntrinsicsFile))
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(conf.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list recording %q", conf.Dir)
	}

	var frames []framePaths
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := colorFileRegexp.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, errors.Wrapf(err, "bad frame index in %q", entry.Name())
		}
		depth := filepath.Join(conf.Dir, fmt.Sprintf("%s_depth.png", match[1]))
		if _, err := os.Stat(depth); err != nil {
			logger.Warnw("skipping frame without depth", "frame", entry.Name(), "error", err)
			continue
		}
		frames = append(frames, framePaths{
			index: index,
			color: filepath.Join(conf.Dir, entry.Name()),
			depth: depth,
		})
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("recording %q has no frames", conf.Dir)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].index < frames[j].index })

	logger.Infow("replaying recording", "dir", conf.Dir, "frames", len(frames), "loop", conf.Loop)
	return &Source{
		model:  model,
		frames: frames,
		loop:   conf.Loop,
		clock:  clk,
		pacer:  camera.NewPacer(clk, conf.FrameRate),
		logger: logger,
	}, nil
}

// Len is the number of frames in the recording.
func (s *Source) Len() int {
	return len(s.frames)
}

// Acquire returns the next recorded frame, stamped with the playback time. A frame that cannot be
// decoded is reported as unavailable and skipped.
func (s *Source) Acquire(ctx context.Context) (camera.Frame, error) {
	if s.closed {
		return camera.Frame{}, camera.ErrSourceClosed
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return camera.Frame{}, camera.ErrSourceExhausted
		}
		s.next = 0
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return camera.Frame{}, err
	}

	paths := s.frames[s.next]
	s.next++

	color, err := rimage.ReadImageFromFile(paths.color)
	if err != nil {
		return camera.Frame{}, camera.NewFrameUnavailableError(err)
	}
	depth, err := rimage.ReadDepthMapFromFile(paths.depth)
	if err != nil {
		return camera.Frame{}, camera.NewFrameUnavailableError(err)
	}
	frame := camera.Frame{
		Color:      color,
		Depth:      depth,
		Model:      s.model,
		CapturedAt: s.clock.Now(),
	}
	if err := frame.Validate(); err != nil {
		return camera.Frame{}, camera.NewFrameUnavailableError(errors.Wrapf(err, "frame %d", paths.index))
	}
	return frame, nil
}

// Close stops playback.
func (s *Source) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

// WriteIntrinsics stores the camera model of a recording.
func WriteIntrinsics(dir string, model *transform.PinholeCameraModel) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, IntrinsicsFile), data, 0o600)
}

// WriteFrame stores one frame of a recording. Color is written as PNG.
func WriteFrame(dir string, index int, frame camera.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(filepath.Join(dir, fmt.Sprintf("%06d_color.png", index)), frame.Color); err != nil {
		return err
	}
	return rimage.WriteImageToFile(filepath.Join(dir, fmt.Sprintf("%06d_depth.png", index)), frame.Depth)
}
