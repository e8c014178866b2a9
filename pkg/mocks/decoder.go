// Package mocks provides mock implementations for testing.
package mocks

import (
	"bytes"
	"image"
	"image/color"
	"sync"

	"github.com/user/hwang/pkg/ports"
)

// Decoder is a mock implementation of ports.VideoDecoder.
//
// Without overrides, Flush turns every submitted sample into one frame whose
// top-left pixel is the sample's first byte.
type Decoder struct {
	mu sync.Mutex

	ConfigureFunc func(cfg ports.StreamConfig) error
	SubmitFunc    func(sample []byte) error
	FlushFunc     func() error
	CloseFunc     func() error

	// Recorded calls for verification
	Configs   []ports.StreamConfig
	Submitted [][]byte
	Flushes   int
	Closes    int

	pending [][]byte
	frames  []image.Image
}

func (m *Decoder) Configure(cfg ports.StreamConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Configs = append(m.Configs, ports.StreamConfig{Codec: cfg.Codec, Metadata: bytes.Clone(cfg.Metadata)})
	m.pending = nil
	m.frames = nil
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(cfg)
	}
	return nil
}

func (m *Decoder) Submit(sample []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitFunc != nil {
		if err := m.SubmitFunc(sample); err != nil {
			return err
		}
	}
	s := bytes.Clone(sample)
	m.Submitted = append(m.Submitted, s)
	m.pending = append(m.pending, s)
	return nil
}

func (m *Decoder) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	if m.FlushFunc != nil {
		if err := m.FlushFunc(); err != nil {
			return err
		}
	}
	for _, s := range m.pending {
		m.frames = append(m.frames, MarkerFrame(s))
	}
	m.pending = nil
	return nil
}

func (m *Decoder) Retrieve() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil, ports.ErrNoFrame
	}
	img := m.frames[0]
	m.frames = m.frames[1:]
	return img, nil
}

func (m *Decoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MarkerFrame returns a 4x4 gray frame whose top-left pixel is sample[0].
func MarkerFrame(sample []byte) image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	if len(sample) > 0 {
		img.SetGray(0, 0, color.Gray{Y: sample[0]})
	}
	return img
}

// Marker returns the top-left pixel value written by MarkerFrame.
func Marker(img image.Image) byte {
	return color.GrayModel.Convert(img.At(img.Bounds().Min.X, img.Bounds().Min.Y)).(color.Gray).Y
}

var _ ports.VideoDecoder = (*Decoder)(nil)
