// Package sidecar implements a landmark detector backed by an external face mesh model served over
// HTTP. Each image is posted as JPEG and the service answers with the landmarks of at most one face:
//
//	{"landmarks": [{"x": 0.41, "y": 0.52, "z": -0.03}, ...]}
//
// A null or empty list means no face was found.
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/rimage"
	"github.com/parallaxlab/headtrack/services/landmarks"
)

// Defaults for the sidecar client.
const (
	DefaultTimeout     = 500 * time.Millisecond
	DefaultJPEGQuality = 85
	maxResponseBytes   = 1 << 20
)

// ErrDetectionFailed is returned when the model service cannot process an image.
var ErrDetectionFailed = errors.New("landmark detection failed")

// Config configures the sidecar client.
type Config struct {
	URL         string        `json:"url"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	JPEGQuality int           `json:"jpeg_quality,omitempty"`
}

// Validate checks the sidecar configuration.
func (conf *Config) Validate() error {
	if conf.URL == "" {
		return errors.New("sidecar detector requires a url")
	}
	if conf.JPEGQuality < 0 || conf.JPEGQuality > 100 {
		return errors.Errorf("jpeg quality must be within [1, 100], or 0 for the default of %d, got %d",
			DefaultJPEGQuality, conf.JPEGQuality)
	}
	return nil
}

type detectResponse struct {
	Landmarks landmarks.Landmarks `json:"landmarks"`
}

// Client is a landmarks.Detector that delegates to the sidecar service.
type Client struct {
	url     string
	quality int
	client  *http.Client
	logger  logging.Logger
}

// NewClient returns a Client for the service at conf.URL.
func NewClient(conf *Config, logger logging.Logger) (*Client, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	quality := conf.JPEGQuality
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	return &Client{
		url:     conf.URL,
		quality: quality,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Detect posts img to the service and decodes its answer.
func (c *Client) Detect(ctx context.Context, img image.Image) (landmarks.Landmarks, error) {
	if img == nil {
		return nil, errors.New("cannot detect landmarks in a nil image")
	}
	body, err := rimage.EncodeJPEG(img, c.quality)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrDetectionFailed, err.Error())
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debugw("error closing sidecar response", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, errors.Wrapf(ErrDetectionFailed, "sidecar returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var decoded detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, errors.Wrap(ErrDetectionFailed, "malformed sidecar response: "+err.Error())
	}
	if len(decoded.Landmarks) == 0 {
		return nil, nil
	}
	return decoded.Landmarks, nil
}

// Close drops idle connections to the service.
func (c *Client) Close(ctx context.Context) error {
	c.client.CloseIdleConnections()
	return nil
}
