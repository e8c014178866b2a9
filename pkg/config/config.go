// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/hwang/pkg/adapters/framesink"
	"github.com/user/hwang/pkg/decoder"
	"github.com/user/hwang/pkg/indexstore"
	"github.com/user/hwang/pkg/player"
	"github.com/user/hwang/pkg/ports"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the full configuration for hwang.
type Config struct {
	// Decoding
	Decoders     []string     `yaml:"decoders"`
	Device       DeviceConfig `yaml:"device"`
	NumDevices   uint32       `yaml:"num_devices"`
	FFmpegPath   string       `yaml:"ffmpeg_path"`
	AllowMissing bool         `yaml:"allow_missing"`

	// Index sidecars
	IndexExtension string `yaml:"index_extension"`

	// Output
	Output OutputConfig `yaml:"output"`

	LogLevel string `yaml:"log_level"`
}

// DeviceConfig selects the device hardware decoders bind to.
type DeviceConfig struct {
	ID   int    `yaml:"id"`
	Type string `yaml:"type"`
}

// OutputConfig controls how extracted frames are written.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Format     string `yaml:"format"`
	Quality    int    `yaml:"quality"`
	ThumbWidth int    `yaml:"thumb_width"`

	ContactSheet     bool `yaml:"contact_sheet"`
	ContactColumns   int  `yaml:"contact_columns"`
	ContactCellWidth int  `yaml:"contact_cell_width"`

	// Summary writes summary.md describing the run into Dir.
	Summary bool `yaml:"summary"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Decoders:       []string{string(decoder.NVIDIA), string(decoder.Intel), string(decoder.Software)},
		Device:         DeviceConfig{ID: 0, Type: "gpu"},
		NumDevices:     1,
		IndexExtension: indexstore.DefaultExtension,
		Output: OutputConfig{
			Dir:              "./frames",
			Format:           "png",
			Quality:          90,
			ContactColumns:   6,
			ContactCellWidth: 160,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field in one error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string

	if _, err := c.DecoderPreference(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.DeviceHandle(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Device.ID < 0 {
		problems = append(problems, fmt.Sprintf("device.id must be >= 0, got %d", c.Device.ID))
	}
	if _, err := c.Level(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.ImageFormat(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		problems = append(problems, fmt.Sprintf("output.quality must be in 1-100, got %d", c.Output.Quality))
	}
	if c.Output.ThumbWidth < 0 {
		problems = append(problems, fmt.Sprintf("output.thumb_width must be >= 0, got %d", c.Output.ThumbWidth))
	}
	if c.Output.ContactSheet && (c.Output.ContactColumns < 1 || c.Output.ContactCellWidth < 1) {
		problems = append(problems, "output.contact_columns and output.contact_cell_width must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// DecoderPreference parses Decoders in order. An empty list means any
// supported backend.
func (c Config) DecoderPreference() ([]decoder.Type, error) {
	types := make([]decoder.Type, 0, len(c.Decoders))
	for _, name := range c.Decoders {
		t, err := decoder.ParseType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// DeviceHandle returns the configured device.
func (c Config) DeviceHandle() (decoder.DeviceHandle, error) {
	dt, err := decoder.ParseDeviceType(c.Device.Type)
	if err != nil {
		return decoder.CPUDevice, err
	}
	return decoder.DeviceHandle{ID: c.Device.ID, Type: dt}, nil
}

// Level parses LogLevel.
func (c Config) Level() (ports.LogLevel, error) {
	return ports.ParseLogLevel(c.LogLevel)
}

// ImageFormat parses Output.Format.
func (c Config) ImageFormat() (ports.ImageFormat, error) {
	switch strings.ToLower(c.Output.Format) {
	case "png", "":
		return ports.FormatPNG, nil
	case "jpg", "jpeg":
		return ports.FormatJPEG, nil
	default:
		return ports.FormatPNG, fmt.Errorf("unknown output format %q", c.Output.Format)
	}
}

// ToPlayerOptions converts Config to player.Options for a stream of codec
// whose samples are shown at pts.
func (c Config) ToPlayerOptions(codec ports.Codec, pts []int64, log ports.Logger) player.Options {
	return player.Options{
		Codec:             codec,
		Logger:            log,
		AllowMissing:      c.AllowMissing,
		PresentationTimes: pts,
	}
}

// ToSinkOptions converts Config to framesink.Options.
func (c Config) ToSinkOptions() framesink.Options {
	format, _ := c.ImageFormat()
	return framesink.Options{
		Format:     format,
		Quality:    c.Output.Quality,
		ThumbWidth: c.Output.ThumbWidth,
	}
}

// FactoryOptions returns the decoder.Factory options implied by Config.
func (c Config) FactoryOptions(log ports.Logger) []decoder.Option {
	return []decoder.Option{
		decoder.WithFFmpegPath(c.FFmpegPath),
		decoder.WithLogger(log),
	}
}
