// Package publish sends tracked head positions to consumers as UDP datagrams.
package publish

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/parallaxlab/headtrack/tracking"
)

// Encoding is a wire format of a Payload.
type Encoding string

// Supported encodings.
const (
	// EncodingJSON is a UTF-8 JSON object {"x","y","z","ts"}.
	EncodingJSON Encoding = "json"
	// EncodingBinary is 20 little-endian bytes: float32 x, y, z then float64 ts.
	EncodingBinary Encoding = "binary"
)

// BinaryPayloadSize is the length of a binary datagram.
const BinaryPayloadSize = 3*4 + 8

// ParseEncoding maps a name to an Encoding. The empty string is EncodingJSON.
func ParseEncoding(name string) (Encoding, error) {
	switch Encoding(strings.ToLower(name)) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingBinary:
		return EncodingBinary, nil
	}
	return "", errors.Errorf("unknown payload encoding %q, expected %q or %q", name, EncodingJSON, EncodingBinary)
}

// Payload is a head position in meters in the camera frame and the Unix time in seconds of the
// frame it was captured in.
type Payload struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	TS float64 `json:"ts"`
}

// FromPoint builds the payload of a smoothed point.
func FromPoint(pt tracking.CameraPoint) Payload {
	return Payload{
		X:  pt.Position.X,
		Y:  pt.Position.Y,
		Z:  pt.Position.Z,
		TS: UnixSeconds(pt.CapturedAt),
	}
}

// UnixSeconds converts t to fractional seconds since the Unix epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// Time is the capture time of the payload.
func (p Payload) Time() time.Time {
	sec, frac := math.Modf(p.TS)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// Encode writes the payload in the given encoding.
func (p Payload) Encode(enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		return json.Marshal(p)
	case EncodingBinary:
		buf := make([]byte, BinaryPayloadSize)
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
		binary.LittleEndian.PutUint64(buf[12:], math.Float64bits(p.TS))
		return buf, nil
	}
	return nil, errors.Errorf("unknown payload encoding %q", enc)
}

// Decode reads a datagram in the given encoding. JSON datagrams are checked against PayloadSchema.
func Decode(enc Encoding, data []byte) (Payload, error) {
	var p Payload
	switch enc {
	case EncodingJSON:
		if err := ValidateJSON(data); err != nil {
			return Payload{}, err
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return Payload{}, errors.Wrap(err, "malformed json payload")
		}
		return p, nil
	case EncodingBinary:
		if len(data) != BinaryPayloadSize {
			return Payload{}, errors.Errorf("binary payload must be %d bytes, got %d", BinaryPayloadSize, len(data))
		}
		p.X = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
		p.Y = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
		p.Z = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8:])))
		p.TS = math.Float64frombits(binary.LittleEndian.Uint64(data[12:]))
		return p, nil
	}
	return Payload{}, errors.Errorf("unknown payload encoding %q", enc)
}
