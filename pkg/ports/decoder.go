package ports

import (
	"errors"
	"image"
)

// ErrNoFrame is returned by VideoDecoder.Retrieve when no decoded frame is
// pending.
var ErrNoFrame = errors.New("decoder: no decoded frame available")

// Codec identifies the compression format of a video stream.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecUnknown Codec = "unknown"
)

// StreamConfig describes the stream a decoder is configured for.
type StreamConfig struct {
	// Codec is the compression format of the submitted samples.
	Codec Codec

	// Metadata is the codec configuration (parameter sets, sequence header)
	// that must reach the decoder before the first sample.
	Metadata []byte
}

// VideoDecoder is the decode-backend capability shared by hardware and
// software backends. A decoder is owned by a single caller and is not safe
// for concurrent use.
//
// The expected call sequence per decode pass is Configure, one Submit per
// sample in decode order starting at a keyframe, Flush, then Retrieve until
// it returns an error wrapping ErrNoFrame.
type VideoDecoder interface {
	// Configure (re)starts the decoder for a stream. Pending samples and
	// undelivered frames from a previous pass are discarded.
	Configure(cfg StreamConfig) error

	// Submit queues one compressed sample.
	Submit(sample []byte) error

	// Flush decodes everything submitted since Configure or the last Flush.
	Flush() error

	// Retrieve returns the next decoded frame in decode order.
	Retrieve() (image.Image, error)

	// Close releases the decoder and any device context it owns.
	// Calling Close more than once is safe.
	Close() error
}
