// Package decoder selects and constructs video decode backends.
//
// Three interchangeable backends exist:
//   - NVIDIA: CUDA primary context + ffmpeg cuda hwaccel (build tag "nvidia", requires cgo)
//   - Intel: VA-API render node + ffmpeg vaapi hwaccel (build tag "intel", linux only)
//   - Software: ffmpeg (always available)
//
// Which backends a binary supports is fixed at build time and reported as
// data by GetSupportedDecoderTypes.
package decoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/user/hwang/pkg/ports"
)

var (
	// ErrUnsupportedDecoderType is returned when a requested backend is not part of this build.
	ErrUnsupportedDecoderType = errors.New("decoder: unsupported decoder type")

	// ErrDeviceInitializationFailed is returned when a backend exists but its
	// driver or device context could not be acquired.
	ErrDeviceInitializationFailed = errors.New("decoder: device initialization failed")

	// ErrNotConfigured is returned when samples are submitted before Configure.
	ErrNotConfigured = errors.New("decoder: decoder not configured")

	// ErrNoFrame is returned by Retrieve when no decoded frame is pending.
	ErrNoFrame = ports.ErrNoFrame

	// ErrClosed is returned when a closed decoder is used.
	ErrClosed = errors.New("decoder: decoder closed")

	// ErrDecodeFailed is returned when the backend fails to decode submitted samples.
	ErrDecodeFailed = errors.New("decoder: decode failed")

	// ErrFFmpegNotFound is returned when the ffmpeg binary cannot be located.
	ErrFFmpegNotFound = errors.New("decoder: ffmpeg not found in PATH")
)

// Type identifies a decode backend.
type Type string

const (
	// NVIDIA decodes on an NVIDIA GPU.
	NVIDIA Type = "nvidia"
	// Intel decodes on an Intel GPU through VA-API.
	Intel Type = "intel"
	// Software decodes on the CPU.
	Software Type = "software"
)

// priority is the fixed order in which supported types are reported.
// Software is always last.
var priority = []Type{NVIDIA, Intel, Software}

// String returns the type name.
func (t Type) String() string {
	return string(t)
}

// ParseType parses a backend name, ignoring case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case NVIDIA, Intel, Software:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDecoderType, s)
	}
}

// DeviceType is the kind of device a decoder runs on.
type DeviceType int

const (
	CPU DeviceType = iota
	GPU
)

// String returns the device type name.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	default:
		return "unknown"
	}
}

// ParseDeviceType parses "cpu" or "gpu".
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu", "":
		return CPU, nil
	case "gpu":
		return GPU, nil
	default:
		return CPU, fmt.Errorf("decoder: unknown device type %q", s)
	}
}

// DeviceHandle names the device a decoder is bound to.
type DeviceHandle struct {
	ID   int
	Type DeviceType
}

// CPUDevice is the handle used for software decoding.
var CPUDevice = DeviceHandle{ID: 0, Type: CPU}
