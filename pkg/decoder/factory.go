package decoder

import (
	"fmt"
	"slices"

	"github.com/user/hwang/pkg/adapters/logger"
	"github.com/user/hwang/pkg/ports"
)

// BackendConfig is passed to a backend constructor.
type BackendConfig struct {
	Device     DeviceHandle
	NumDevices uint32
	FFmpegPath string
	Logger     ports.Logger
}

// Constructor builds a decoder for one backend. A returned error means the
// backend exists but could not acquire its driver or device.
type Constructor func(cfg BackendConfig) (ports.VideoDecoder, error)

// Factory reports which backends this build supports and constructs them.
// Its query methods are safe for concurrent use.
type Factory struct {
	backends   map[Type]Constructor
	ffmpegPath string
	logger     ports.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger handed to constructed decoders.
func WithLogger(l ports.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFFmpegPath sets a custom ffmpeg binary for ffmpeg-driven backends.
func WithFFmpegPath(path string) Option {
	return func(f *Factory) {
		f.ffmpegPath = path
	}
}

// WithBackend replaces the constructor for t. A nil constructor removes a
// hardware backend; the software backend cannot be removed. Types outside
// the known set are ignored.
func WithBackend(t Type, c Constructor) Option {
	return func(f *Factory) {
		if !slices.Contains(priority, t) {
			return
		}
		if c == nil {
			if t != Software {
				delete(f.backends, t)
			}
			return
		}
		f.backends[t] = c
	}
}

// NewFactory creates a factory holding the backends compiled into this binary.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		backends: compiledBackends(),
		logger:   logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func compiledBackends() map[Type]Constructor {
	backends := map[Type]Constructor{
		Software: newSoftwareDecoder,
	}
	if c := nvidiaBackend(); c != nil {
		backends[NVIDIA] = c
	}
	if c := intelBackend(); c != nil {
		backends[Intel] = c
	}
	return backends
}

// GetSupportedDecoderTypes returns the supported backends in priority order:
// hardware backends first, Software always last.
func (f *Factory) GetSupportedDecoderTypes() []Type {
	types := make([]Type, 0, len(priority))
	for _, t := range priority {
		if _, ok := f.backends[t]; ok {
			types = append(types, t)
		}
	}
	return types
}

// HasDecoderType reports whether t is supported by this build.
func (f *Factory) HasDecoderType(t Type) bool {
	for _, supported := range f.GetSupportedDecoderTypes() {
		if supported == t {
			return true
		}
	}
	return false
}

// Select returns the first of preferred that is supported, or the highest
// priority supported type when preferred is empty.
func (f *Factory) Select(preferred ...Type) (Type, error) {
	supported := f.GetSupportedDecoderTypes()
	if len(preferred) == 0 {
		return supported[0], nil
	}
	for _, t := range preferred {
		if f.HasDecoderType(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: none of %v in %v", ErrUnsupportedDecoderType, preferred, supported)
}

// MakeFromConfig constructs a decoder of type t bound to device.
//
// It returns (nil, nil) when t is not supported by this build; callers are
// expected to check HasDecoderType first. A backend that is present but
// fails to acquire its driver or device context returns an error wrapping
// ErrDeviceInitializationFailed.
//
// Hardware backends acquire a device context that is owned by the returned
// decoder and released by its Close method. Ownership of the decoder passes
// to the caller.
func (f *Factory) MakeFromConfig(device DeviceHandle, numDevices uint32, t Type) (ports.VideoDecoder, error) {
	ctor, ok := f.backends[t]
	if !ok || !f.HasDecoderType(t) {
		f.logger.Debug("Decoder type %s is not available in this build", t)
		return nil, nil
	}
	if numDevices == 0 {
		numDevices = 1
	}

	f.logger.Debug("Creating %s decoder on %s device %d", t, device.Type, device.ID)
	dec, err := ctor(BackendConfig{
		Device:     device,
		NumDevices: numDevices,
		FFmpegPath: f.ffmpegPath,
		Logger:     f.logger.WithComponent(string(t)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s device %d: %w", ErrDeviceInitializationFailed, t, device.Type, device.ID, err)
	}
	return dec, nil
}

// Default is the factory used by the package-level functions.
var Default = NewFactory()

// GetSupportedDecoderTypes reports the backends of the Default factory.
func GetSupportedDecoderTypes() []Type {
	return Default.GetSupportedDecoderTypes()
}

// HasDecoderType reports whether the Default factory supports t.
func HasDecoderType(t Type) bool {
	return Default.HasDecoderType(t)
}

// MakeFromConfig constructs a decoder with the Default factory.
func MakeFromConfig(device DeviceHandle, numDevices uint32, t Type) (ports.VideoDecoder, error) {
	return Default.MakeFromConfig(device, numDevices, t)
}
